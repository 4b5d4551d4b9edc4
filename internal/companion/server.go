package companion

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"refwatch/internal/core/match"
	"refwatch/internal/log"
	"refwatch/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const maxReportBytes = 1 << 20

// NewRouter builds the companion HTTP surface.
func NewRouter(receiver *Receiver, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	server := &server{
		receiver: receiver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			// The referee device is not a browser and sends no Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Post("/reports", server.handlePostReport)
	router.Get("/reports", server.handleListReports)
	router.Get("/reports/{id}", server.handleGetReport)
	router.Patch("/reports/{id}", server.handlePatchReport)
	router.Delete("/reports/{id}", server.handleDeleteReport)
	router.Post("/reports/{id}/events", server.handleAddEvent)
	router.Delete("/reports/{id}/events/{eventID}", server.handleRemoveEvent)
	router.Get("/stats", server.handleStats)
	router.Get("/ws", server.handleWebSocket)
	router.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

type server struct {
	receiver *Receiver
	upgrader websocket.Upgrader
}

// handlePostReport stores a report from a referee, answered with an ack,
// or creates one entered by hand when the body carries no id.
func (server *server) handlePostReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	var header struct {
		ID uuid.UUID `json:"id"`
	}
	if json.Unmarshal(body, &header) == nil && header.ID == uuid.Nil {
		var draft match.Report
		if err := json.Unmarshal(body, &draft); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		report, err := server.receiver.Create(draft)
		if err != nil {
			writeError(w, editStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, report)
		return
	}

	report, _, err := server.receiver.Accept("http", body)
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, transport.Envelope{Type: transport.TypeAck, ReportID: report.ID})
}

func (server *server) handleListReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, server.receiver.History().List())
}

func (server *server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	report, ok := server.receiver.History().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrReportNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (server *server) handlePatchReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var patch ReportPatch
	if !readJSON(w, r, &patch) {
		return
	}
	report, err := server.receiver.Update(id, patch)
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (server *server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := server.receiver.Delete(id); err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (server *server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var event match.Event
	if !readJSON(w, r, &event) {
		return
	}
	added, err := server.receiver.AddEvent(id, event)
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (server *server) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	report, err := server.receiver.RemoveEvent(id, eventID)
	if err != nil {
		writeError(w, editStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (server *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Summarize(server.receiver.History().List()))
}

// handleWebSocket reads report envelopes and answers each stored or
// duplicate report with an ack. Invalid reports get no ack.
func (server *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxReportBytes)

	logger := log.WithComponent("companion").With().Str(log.FieldRemote, r.RemoteAddr).Logger()
	logger.Debug().Msg("websocket connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("websocket closed")
			}
			return
		}

		envelope, err := transport.DecodeEnvelope(data)
		if err != nil || envelope.Type != transport.TypeReport {
			logger.Warn().Err(err).Msg("ignoring websocket message")
			continue
		}
		if _, _, err := server.receiver.Accept("websocket", envelope.Report); err != nil {
			continue
		}

		ack, err := transport.AckEnvelope(envelope.ReportID)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			return
		}
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func editStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidReport):
		return http.StatusBadRequest
	case errors.Is(err, ErrReportNotFound), errors.Is(err, ErrEventNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
