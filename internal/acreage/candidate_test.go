package acreage

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePage(t *testing.T, html string) (*goquery.Document, *url.URL) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	base, err := url.Parse("https://www.fsa.usda.gov/tools/crop-acreage-data")
	require.NoError(t, err)
	return doc, base
}

func TestExtractCandidates_YearFromLinkText(t *testing.T) {
	// The anchor's own text names 2023 even though it sits under the 2024
	// heading; text-level signal wins.
	html := `
	<h2>2024 Crop Year</h2>
	<ul>
		<li><a href="/documents/101">2023 acreage data as of August 1, 2023</a></li>
	</ul>`
	doc, base := parsePage(t, html)

	got := ExtractCandidates(doc, base, "2023")
	require.Len(t, got, 1)
	assert.Equal(t, "2023", got[0].Year)
	assert.Equal(t, "https://www.fsa.usda.gov/documents/101", got[0].URL)
	require.NotNil(t, got[0].AsOf)
	assert.Equal(t, "2023-08-01", got[0].AsOf.Format("2006-01-02"))

	// And nothing is attributed to 2024.
	assert.Empty(t, ExtractCandidates(doc, base, "2024"))
}

func TestExtractCandidates_YearFromHeading(t *testing.T) {
	html := `
	<h3>2022 Crop Year</h3>
	<p><a href="/files/acres.zip">County data as of July 15, 2022</a></p>
	<h3>2021 Crop Year</h3>
	<p><a href="/files/acres-old.zip">County data</a></p>`
	doc, base := parsePage(t, html)

	got := ExtractCandidates(doc, base, "2022")
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.fsa.usda.gov/files/acres.zip", got[0].URL)

	got = ExtractCandidates(doc, base, "2021")
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.fsa.usda.gov/files/acres-old.zip", got[0].URL)
}

func TestExtractCandidates_YearFromContextFallback(t *testing.T) {
	// Neither the anchor text nor any heading carries the year; the
	// surrounding container does.
	html := `
	<div>Data for 2020 planting season:
		<a href="/files/archive.zip">Download the archive</a>
	</div>`
	doc, base := parsePage(t, html)

	got := ExtractCandidates(doc, base, "2020")
	require.Len(t, got, 1)
	assert.Equal(t, "2020", got[0].Year)
}

func TestExtractCandidates_DiscardsYearlessForTargetYear(t *testing.T) {
	html := `<p><a href="/files/misc.zip">Some archive</a></p>`
	doc, base := parsePage(t, html)

	assert.Empty(t, ExtractCandidates(doc, base, "2024"))

	// Without a target year the candidate survives with an empty year.
	got := ExtractCandidates(doc, base, "")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Year)
}

func TestExtractCandidates_ZipLikeShapes(t *testing.T) {
	// Extension-stripped "zip" endings and /documents/ indirections both
	// count; plain pages do not.
	html := `
	<h2>2024 Crop Year</h2>
	<a href="/files/data.zip">A</a>
	<a href="/files/2024acreagezip">B</a>
	<a href="/documents/42">C</a>
	<a href="/about-us">D</a>`
	doc, base := parsePage(t, html)

	got := ExtractCandidates(doc, base, "2024")
	require.Len(t, got, 3)

	var urls []string
	for _, c := range got {
		urls = append(urls, c.URL)
	}
	assert.NotContains(t, strings.Join(urls, " "), "about-us")
}

func TestExtractCandidates_AbsoluteURLsPassThrough(t *testing.T) {
	html := `
	<h2>2024 Crop Year</h2>
	<a href="https://cdn.example.gov/fsa/2024.zip">County data</a>`
	doc, base := parsePage(t, html)

	got := ExtractCandidates(doc, base, "2024")
	require.Len(t, got, 1)
	assert.Equal(t, "https://cdn.example.gov/fsa/2024.zip", got[0].URL)
}

func TestExtractCandidates_HeadingScanIsBounded(t *testing.T) {
	// Pile more than headingScanLimit unrelated headings between the crop
	// year heading and the anchor; attribution gives up.
	var sb strings.Builder
	sb.WriteString(`<h2>2019 Crop Year</h2>`)
	for range headingScanLimit {
		sb.WriteString(`<h4>Unrelated section</h4>`)
	}
	sb.WriteString(`<a href="/files/buried.zip">archive</a>`)
	doc, base := parsePage(t, sb.String())

	assert.Empty(t, ExtractCandidates(doc, base, "2019"))
}

func TestYearsOnPage(t *testing.T) {
	html := `
	<h2>2025 Crop Year</h2>
	<h2>2023 Crop Year</h2>
	<h3>2024 Crop Year</h3>
	<h2>About this page</h2>
	<h2>Contact 2099</h2>`
	doc, _ := parsePage(t, html)

	assert.Equal(t, []string{"2023", "2024", "2025"}, YearsOnPage(doc))
}

func TestIsZipLikeHref(t *testing.T) {
	assert.True(t, isZipLikeHref("/files/data.zip"))
	assert.True(t, isZipLikeHref("/files/DATA.ZIP"))
	assert.True(t, isZipLikeHref("/files/acreagezip"))
	assert.True(t, isZipLikeHref("/documents/42"))
	assert.False(t, isZipLikeHref("/files/data.csv"))
	assert.False(t, isZipLikeHref("/about"))
}
