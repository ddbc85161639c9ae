package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		secs int
		norm string
		ok   bool
	}{
		{"00:00", 0, "00:00", true},
		{"18:30", 18*3600 + 30*60, "18:30", true},
		{"7:05", 7*3600 + 5*60, "07:05", true},
		{" 12:00 ", 12 * 3600, "12:00", true},
		{"12:00:00", 12 * 3600, "12:00", true},
		{"12:00:30", 12*3600 + 30, "12:00:30", true},
		{"23:59", 23*3600 + 59*60, "23:59", true},
		{"24:00", 0, "", false},
		{"12:60", 0, "", false},
		{"noon", 0, "", false},
		{"", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			secs, norm, err := parseClock("start_time", tt.in)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				var ie *InputError
				require.ErrorAs(t, err, &ie)
				assert.Equal(t, "start_time", ie.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secs, secs)
			assert.Equal(t, tt.norm, norm)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", d.Format(dateLayout))

	for _, in := range []string{"", "2025-13-01", "2025-02-29", "01/06/2025", "2025-6-1"} {
		_, err := parseDate(in)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", in)
	}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, overlaps(10, 20, 15, 25))
	assert.True(t, overlaps(15, 25, 10, 20))
	assert.True(t, overlaps(10, 20, 12, 18))
	assert.True(t, overlaps(10, 20, 10, 20))
	assert.False(t, overlaps(10, 20, 20, 30))
	assert.False(t, overlaps(20, 30, 10, 20))
	assert.False(t, overlaps(10, 20, 30, 40))
}

func TestErrorsUnwrap(t *testing.T) {
	assert.ErrorIs(t, &InputError{Field: "seats", Reason: "bad"}, ErrInvalidInput)
	assert.ErrorIs(t, &InvariantError{Violation: EndBeforeStart}, ErrInvariantViolation)
	assert.ErrorIs(t, &ConflictError{}, ErrConflict)
	assert.True(t, IsViolation(&InvariantError{Violation: PastDateTime}, PastDateTime))
	assert.False(t, IsViolation(&InvariantError{Violation: PastDateTime}, EndBeforeStart))
	assert.False(t, IsViolation(ErrConflict, PastDateTime))
	assert.Equal(t, "seats: bad", (&InputError{Field: "seats", Reason: "bad"}).Error())
}
