package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := ParseUTC(s)
	require.NoError(t, err)
	return ts
}

func TestIntervalContainsOpenEnd(t *testing.T) {
	iv := Interval{Start: mustParse(t, "2023-01-15T00:00:00Z")}
	require.True(t, iv.Contains(mustParse(t, "2023-06-01T00:00:00Z")))
	require.False(t, iv.Contains(mustParse(t, "2022-01-01T00:00:00Z")))
}

func TestIntervalContainsClosedEnd(t *testing.T) {
	end := mustParse(t, "2023-06-01T00:00:00Z")
	iv := Interval{Start: mustParse(t, "2023-01-15T00:00:00Z"), End: &end}
	require.True(t, iv.Contains(mustParse(t, "2023-05-31T00:00:00Z")))
	require.False(t, iv.Contains(end)) // End is exclusive
}

func TestIntervalInstantaneous(t *testing.T) {
	at := mustParse(t, "2023-01-15T00:00:00Z")
	iv := Interval{Start: at, End: &at}
	// valid_to == valid_from is a valid instantaneous edge,
	// but under exclusive-end containment it contains nothing.
	require.False(t, iv.Contains(at))
}

func TestParseUTCRequiresTimezone(t *testing.T) {
	_, err := ParseUTC("2023-01-15T00:00:00")
	require.Error(t, err)
}

func TestRelateBeforeAfter(t *testing.T) {
	aEnd := mustParse(t, "2023-01-01T00:00:00Z")
	a := Interval{Start: mustParse(t, "2022-01-01T00:00:00Z"), End: &aEnd}
	b := Interval{Start: mustParse(t, "2023-06-01T00:00:00Z")}
	require.Equal(t, RelationBefore, Relate(a, b))
	require.Equal(t, RelationAfter, Relate(b, a))
}

func TestOverlaps(t *testing.T) {
	aEnd := mustParse(t, "2023-06-01T00:00:00Z")
	a := Interval{Start: mustParse(t, "2023-01-01T00:00:00Z"), End: &aEnd}
	b := Interval{Start: mustParse(t, "2023-03-01T00:00:00Z")}
	require.True(t, Overlaps(a, b))

	bStart := mustParse(t, "2024-01-01T00:00:00Z")
	c := Interval{Start: bStart}
	require.False(t, Overlaps(a, c))
}
