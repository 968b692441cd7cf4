package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWindow_Default(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startDate time.Time
		wantFrom  time.Time
	}{
		{"ten days back", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 24, 0, 0, 0, 0, time.UTC)},
		{"recent account start wins", time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &Account{StartDate: tt.startDate}
			w, err := ResolveWindow(now, account, nil, ImportTypeFull)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFrom, w.Start())
			assert.Equal(t, time.Date(2024, 6, 3, 23, 59, 59, 999999999, time.UTC), w.End())
		})
	}
}

func TestResolveWindow_AccountTimeZone(t *testing.T) {
	now := time.Date(2024, 6, 3, 2, 0, 0, 0, time.UTC)
	account := &Account{TimeZone: "America/New_York"}

	w, err := ResolveWindow(now, account, nil, ImportTypeFull)
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.True(t, w.End().Equal(time.Date(2024, 6, 2, 23, 59, 59, 999999999, ny)), "end of day in New York, got %s", w.End())
}

func TestResolveWindow_ExternalRange(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	from := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 10, 45, 0, 0, time.UTC)
	ext := &ExternalImport{DateFrom: &from, DateTo: &to}

	full, err := ResolveWindow(now, &Account{}, ext, ImportTypeFull)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), full.Start())
	assert.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 999999999, time.UTC), full.End())

	hourly, err := ResolveWindow(now, &Account{}, ext, ImportTypeHourly)
	require.NoError(t, err)
	assert.Equal(t, from, hourly.Start())
	assert.Equal(t, to, hourly.End())
}

func TestResolveWindow_RejectsInvertedRange(t *testing.T) {
	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := ResolveWindow(time.Now(), &Account{}, &ExternalImport{DateFrom: &from, DateTo: &to}, ImportTypeFull)
	assert.Error(t, err)
}
