package match

import "time"

// NotificationType defines the type of match notification.
type NotificationType string

const (
	NotifyPhaseChange   NotificationType = "phase_change"
	NotifyClock         NotificationType = "clock"
	NotifyEventRecorded NotificationType = "event_recorded"
	NotifyInterruption  NotificationType = "interruption"
	NotifyProgress      NotificationType = "progress"
	NotifyFeedback      NotificationType = "feedback"
	NotifyRejected      NotificationType = "rejected"
	NotifyReport        NotificationType = "report"
)

// Feedback names a haptic or audio cue. Cues are informational; dropping
// them never changes match state.
type Feedback string

const (
	FeedbackKickOff         Feedback = "kickOff"
	FeedbackHalfTime        Feedback = "halfTime"
	FeedbackFullTime        Feedback = "fullTime"
	FeedbackSecondYellow    Feedback = "secondYellow"
	FeedbackAddedTimeAlert  Feedback = "addedTimeAlert"
	FeedbackShootoutKick    Feedback = "shootoutKick"
	FeedbackShootoutDecided Feedback = "shootoutDecided"
)

// Critical reports whether the cue should be surfaced prominently.
func (feedback Feedback) Critical() bool {
	return feedback == FeedbackSecondYellow || feedback == FeedbackFullTime
}

// Notification is a match update for observers.
type Notification struct {
	Type     NotificationType
	Phase    Phase
	Running  bool
	Feedback Feedback
	Event    *Event
	Report   *Report
	Status   Status
	Err      error
	At       time.Time
}
