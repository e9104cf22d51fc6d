package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtbook/slot-engine/internal/domain/businesshours"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FACILITY_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.HoldGraceWindow)
	assert.True(t, cfg.StaffHoldsBlock)
	assert.Equal(t, []string{"sunday"}, cfg.BusinessOffDays)
	assert.Equal(t, 60, cfg.SlotMinutes)

	policy := cfg.SlotPolicy()
	assert.Equal(t, 15*time.Minute, policy.HoldGraceWindow)
}

func TestLoadReadsCalendarFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  - 2025-12-25\n  - 2026-01-01\n"), 0o600))

	t.Setenv("FACILITY_TIMEZONE", "UTC")
	t.Setenv("CALENDAR_FILE", path)
	t.Setenv("HOLD_GRACE_WINDOW", "0s")
	t.Setenv("STAFF_HOLDS_BLOCK", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12-25", "2026-01-01"}, cfg.Holidays)
	assert.Zero(t, cfg.HoldGraceWindow)
	assert.False(t, cfg.StaffHoldsBlock)

	cal, err := cfg.BusinessCalendar()
	require.NoError(t, err)
	assert.False(t, cal.IsBusinessDay(time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC)))
}

func TestValidateRejectsCalendarWithoutBusinessDays(t *testing.T) {
	cfg := &Config{
		Timezone:        "UTC",
		BusinessOpen:    "08:00",
		BusinessClose:   "17:00",
		BusinessOffDays: []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
		SlotMinutes:     60,
		PendingCartTTL:  time.Hour,
		SweeperCron:     "0 * * * *",
	}

	assert.ErrorIs(t, cfg.Validate(), businesshours.ErrNoBusinessDays)
}

func TestValidateRejectsMalformedHours(t *testing.T) {
	cfg := &Config{
		Timezone:       "UTC",
		BusinessOpen:   "8am",
		BusinessClose:  "17:00",
		SlotMinutes:    60,
		PendingCartTTL: time.Hour,
		SweeperCron:    "0 * * * *",
	}

	assert.Error(t, cfg.Validate())
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{" Sunday", "saturday", ""})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, days)

	_, err = ParseWeekdays([]string{"funday"})
	assert.Error(t, err)
}
