package preferences

import (
	"testing"
	"time"

	"refwatch/internal/core/model"

	"github.com/stretchr/testify/require"
)

func TestMatchConfigFromDefaults(t *testing.T) {
	config := DefaultSettings().MatchConfig()
	require.Equal(t, model.MatchConfig{}.WithDefaults(), config)
	require.Equal(t, 45*time.Minute, config.HalfDuration)
}

func TestMatchConfigFillsGaps(t *testing.T) {
	settings := Settings{HomeTeam: "Lions", HalfDuration: 20 * time.Minute}
	config := settings.MatchConfig()

	require.Equal(t, "Lions", config.HomeTeam)
	require.Equal(t, model.DefaultAwayTeam, config.AwayTeam)
	require.Equal(t, 20*time.Minute, config.HalfDuration)
	require.Equal(t, model.DefaultExtraTimeHalfDuration, config.ExtraTimeHalfDuration)
	require.Equal(t, model.DefaultAlertThreshold, config.AlertThreshold)
}
