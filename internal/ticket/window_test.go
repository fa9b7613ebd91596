package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowCheck(t *testing.T) {
	date := time.Date(2025, 6, 14, 19, 0, 0, 0, time.UTC)
	w := DefaultWindow()

	tests := []struct {
		name   string
		now    time.Time
		kind   Kind
		wantAt time.Time
	}{
		{"day before", date.Add(-21 * time.Hour), KindNotYetOpen, date.Add(-20 * time.Hour)},
		{"just before opening", date.Add(-20*time.Hour - time.Second), KindNotYetOpen, date.Add(-20 * time.Hour)},
		{"at opening", date.Add(-20 * time.Hour), "", time.Time{}},
		{"morning of", date.Add(-19 * time.Hour), "", time.Time{}},
		{"at start", date, "", time.Time{}},
		{"at closing", date.Add(2 * time.Hour), "", time.Time{}},
		{"just after closing", date.Add(2*time.Hour + time.Second), KindWindowClosed, date.Add(2 * time.Hour)},
		{"long after", date.Add(3 * time.Hour), KindWindowClosed, date.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Check(date, tt.now)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			var terr *Error
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.kind, terr.Kind)
			assert.True(t, tt.wantAt.Equal(terr.At), "at = %s, want %s", terr.At, tt.wantAt)
		})
	}
}

func TestWindowCustomBounds(t *testing.T) {
	date := time.Date(2025, 6, 14, 19, 0, 0, 0, time.UTC)
	w := Window{OpensBefore: time.Hour, ClosesAfter: 30 * time.Minute}

	opensAt, closesAt := w.Bounds(date)
	assert.Equal(t, date.Add(-time.Hour), opensAt)
	assert.Equal(t, date.Add(30*time.Minute), closesAt)

	assert.Equal(t, KindNotYetOpen, KindOf(w.Check(date, date.Add(-2*time.Hour))))
	assert.Equal(t, KindWindowClosed, KindOf(w.Check(date, date.Add(time.Hour))))
}
