package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("date", "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "10/01/2024", "2024-13-01", "2024-01-10T10:00:00Z"} {
		_, err := ParseDate("date", bad)
		assert.True(t, IsValidation(err), "expected validation error for %q", bad)
	}
}

func TestParseMonth(t *testing.T) {
	from, to, err := ParseMonth("month", "2024-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = ParseMonth("month", "2024-1-5")
	assert.True(t, IsValidation(err))
}

func TestValidationErrorWrapping(t *testing.T) {
	err := fmt.Errorf("add score: %w", Invalid("score", "must not exceed maxScore"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "score", verr.Fields[0].Field)
	assert.Contains(t, err.Error(), "must not exceed maxScore")
}

func TestDay(t *testing.T) {
	in := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("x", -2*3600))
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), Day(in))
}
