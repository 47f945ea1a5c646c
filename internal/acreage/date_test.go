package acreage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAsOf_ExplicitPhrase(t *testing.T) {
	got := ParseAsOf("2024 acreage data as of August 1, 2024 (ZIP, 12 MB)")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC), *got)
}

func TestParseAsOf_NormalizesAbbreviatedMonths(t *testing.T) {
	cases := map[string]time.Month{
		"as of Sept 3, 2024": time.September,
		"as of Sep. 3, 2024": time.September,
		"as of Jan. 3, 2024": time.January,
		"as of Feb. 3, 2024": time.February,
		"as of Aug. 3, 2024": time.August,
		"as of Oct. 3, 2024": time.October,
		"as of Dec. 3, 2024": time.December,
	}
	for text, month := range cases {
		got := ParseAsOf(text)
		require.NotNil(t, got, "input %q", text)
		assert.Equal(t, month, got.Month(), "input %q", text)
		assert.Equal(t, 3, got.Day(), "input %q", text)
	}
}

func TestParseAsOf_FallsBackToAnyDatePhrase(t *testing.T) {
	got := ParseAsOf("published November 12, 2023 by the agency")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2023, time.November, 12, 0, 0, 0, 0, time.UTC), *got)
}

func TestParseAsOf_PrefersAsOfOverOtherDates(t *testing.T) {
	got := ParseAsOf("updated January 1, 2020 | 2024 acreage data as of June 15, 2024")
	require.NotNil(t, got)
	assert.Equal(t, time.June, got.Month())
	assert.Equal(t, 2024, got.Year())
}

func TestParseAsOf_MalformedYieldsNil(t *testing.T) {
	for _, text := range []string{
		"",
		"no date here",
		"as of Thermidor 9, 1794",
		"as of Month 99, 2024",
	} {
		assert.Nil(t, ParseAsOf(text), "input %q", text)
	}
}

func TestNormalizeMonth(t *testing.T) {
	assert.Equal(t, "September 3, 2024", normalizeMonth("Sept 3, 2024"))
	assert.Equal(t, "January 3, 2024", normalizeMonth("Jan. 3, 2024"))
	// Full names pass through untouched.
	assert.Equal(t, "August 1, 2024", normalizeMonth("August 1, 2024"))
	assert.Equal(t, "", normalizeMonth(""))
}
