package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartKnownDates(t *testing.T) {
	tests := []struct {
		name string
		date string
		want string
	}{
		{name: "monday stays", date: "2024-01-08", want: "2024-01-08"},
		{name: "wednesday", date: "2024-01-10", want: "2024-01-08"},
		{name: "saturday", date: "2024-01-13", want: "2024-01-08"},
		{name: "sunday goes back six days", date: "2024-01-14", want: "2024-01-08"},
		{name: "across month", date: "2024-03-02", want: "2024-02-26"},
		{name: "across year", date: "2025-01-01", want: "2024-12-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := time.Parse(KeyLayout, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Key(day))
		})
	}
}

func TestStartProperties(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	base := time.Date(2023, 12, 1, 17, 45, 0, 0, loc)

	for i := 0; i < 120; i++ {
		d := base.AddDate(0, 0, i).Add(time.Duration(i) * 37 * time.Minute)
		start := Start(d)

		assert.Equal(t, time.Monday, start.Weekday(), "start of %s", d)
		assert.False(t, start.After(d), "start after date for %s", d)
		assert.Equal(t, start, Start(start), "not idempotent for %s", d)
		assert.Equal(t, loc, start.Location())
		assert.Less(t, d.Sub(start), 7*24*time.Hour)
	}
}

func TestSameSpanSameKey(t *testing.T) {
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7; offset++ {
		d := monday.AddDate(0, 0, offset).Add(23 * time.Hour)
		assert.Equal(t, "2024-01-08", Key(d))
	}
	assert.Equal(t, "2024-01-15", Key(monday.AddDate(0, 0, 7)))
	assert.Equal(t, "2024-01-14", End(monday).Format(KeyLayout))
}

func TestNormalize(t *testing.T) {
	key, err := Normalize(" 2024-01-12 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", key)

	_, err = Normalize("")
	assert.Error(t, err)

	_, err = Normalize("12/01/2024")
	assert.Error(t, err)
}
