package portal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

func TestParseExamDate(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.Date
	}{
		{"2026-03-11", "2026-03-11"},
		{"11-03-2026", "2026-03-11"},
		{"11-Mar-2026", "2026-03-11"},
		{"11/03/2026", "2026-03-11"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := parseExamDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}

	_, err := parseExamDate("tomorrow")
	assert.Error(t, err)
}

func TestRow_Float(t *testing.T) {
	r := row{json.Number("82.5"), "76%", "", nil, "abc"}

	f, ok, err := r.float(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 82.5, f, 0.0001)

	f, ok, err = r.float(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 76.0, f, 0.0001)

	_, ok, err = r.float(2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.float(3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = r.float(4)
	assert.Error(t, err)

	// Out of range is treated as empty
	_, ok, err = r.float(10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCourseFromRow_ShortRow(t *testing.T) {
	_, err := courseFromRow(row{"CS101", "Data Structures"})
	assert.Error(t, err)
}

func TestCourseFromRow_EmptyCode(t *testing.T) {
	_, err := courseFromRow(row{"", "Data Structures", json.Number("10"), json.Number("9")})
	assert.Error(t, err)
}

func TestUnwrap_MissingData(t *testing.T) {
	var rows []row
	assert.ErrorIs(t, unwrap([]byte(`{"data": null}`), pathAttendance, &rows), domain.ErrDecodePayload)
	assert.ErrorIs(t, unwrap([]byte(`{}`), pathAttendance, &rows), domain.ErrDecodePayload)
}

func TestDecodeAttendance_Empty(t *testing.T) {
	courses, err := decodeAttendance([]byte(`{"data": []}`))
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
}
