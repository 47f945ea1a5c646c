package acreage

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// IndexURL is the FSA FOIA reading-room page listing crop acreage archives.
const IndexURL = "https://www.fsa.usda.gov/tools/informational/freedom-information-act-foia/electronic-reading-room/frequently-requested/crop-acreage-data"

// Crop year at the start of the link text, e.g. "2024 acreage data ...".
var linkTextYearRe = regexp.MustCompile(`(?i)^\s*(20\d{2})\s+acreage\s+data\b`)

// Any year-shaped token.
var yearTokenRe = regexp.MustCompile(`\b(20\d{2})\b`)

// How many preceding section headings to scan when attributing an anchor to
// a crop year.
const headingScanLimit = 8

// LinkCandidate is a link discovered on the index page that is suspected of
// pointing at a yearly acreage archive. Year is inferred, not guaranteed.
type LinkCandidate struct {
	Year    string
	URL     string
	AsOf    *time.Time
	Text    string
	Context string
}

// isZipLikeHref reports whether the target looks like an archive link: it
// ends in ".zip", ends in the bare "zip" token (some servers strip the
// extension), or sits under the publisher's /documents/ indirection path.
func isZipLikeHref(href string) bool {
	h := strings.ToLower(href)
	if strings.HasSuffix(h, "zip") {
		return true
	}
	return strings.Contains(h, "/documents/")
}

// anchorContext carries everything the year strategies may inspect for one
// anchor.
type anchorContext struct {
	text     string
	context  string
	pos      int
	headings []heading
}

type heading struct {
	pos  int
	text string
}

// yearStrategy attempts to infer the crop year for an anchor. Empty string
// means the strategy has no answer; the first success short-circuits.
type yearStrategy func(a anchorContext) string

var yearStrategies = []yearStrategy{
	yearFromLinkText,
	yearFromHeading,
	yearFromContext,
}

// yearFromLinkText matches "YYYY acreage data" at the start of the anchor's
// own text. Text-level signal beats heading context.
func yearFromLinkText(a anchorContext) string {
	if m := linkTextYearRe.FindStringSubmatch(a.text); m != nil {
		return m[1]
	}
	return ""
}

// yearFromHeading scans the nearest preceding section headings for a
// "crop year" heading carrying a year token.
func yearFromHeading(a anchorContext) string {
	scanned := 0
	for i := len(a.headings) - 1; i >= 0 && scanned < headingScanLimit; i-- {
		h := a.headings[i]
		if h.pos >= a.pos {
			continue
		}
		scanned++
		if !strings.Contains(strings.ToLower(h.text), "crop year") {
			continue
		}
		if m := yearTokenRe.FindStringSubmatch(h.text); m != nil {
			return m[1]
		}
	}
	return ""
}

// yearFromContext falls back to any year-shaped token in the anchor's
// combined context text.
func yearFromContext(a anchorContext) string {
	if m := yearTokenRe.FindStringSubmatch(a.context); m != nil {
		return m[1]
	}
	return ""
}

// ExtractCandidates scans the index page for archive links belonging to
// targetYear. Relative targets are resolved against base. Anchors whose year
// cannot be inferred are discarded when a target year is requested; pass an
// empty targetYear to keep every classified anchor.
func ExtractCandidates(doc *goquery.Document, base *url.URL, targetYear string) []LinkCandidate {
	order := indexNodes(doc)
	headings := collectHeadings(doc, order)

	var out []LinkCandidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" || !isZipLikeHref(href) {
			return
		}

		node := sel.Get(0)
		actx := anchorContext{
			text:     squashText(sel.Text()),
			context:  contextText(sel, node, order),
			pos:      order.of(node),
			headings: headings,
		}

		var year string
		for _, strategy := range yearStrategies {
			if year = strategy(actx); year != "" {
				break
			}
		}
		if targetYear != "" && year != targetYear {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		out = append(out, LinkCandidate{
			Year:    year,
			URL:     base.ResolveReference(ref).String(),
			AsOf:    ParseAsOf(actx.context),
			Text:    actx.text,
			Context: actx.context,
		})
	})

	return out
}

// YearsOnPage returns the sorted set of crop years that have a section
// heading on the index page. Used for diagnostics when a requested year has
// no candidates.
func YearsOnPage(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	doc.Find("h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		text := squashText(sel.Text())
		if !strings.Contains(strings.ToLower(text), "crop year") {
			return
		}
		if m := yearTokenRe.FindStringSubmatch(text); m != nil {
			seen[m[1]] = true
		}
	})

	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// contextText combines the anchor's own text, its nearest li/p/div ancestor
// text, and the nearest preceding text node, de-duplicated in order.
func contextText(sel *goquery.Selection, node *html.Node, order *nodeOrder) string {
	var parts []string
	if t := squashText(sel.Text()); t != "" {
		parts = append(parts, t)
	}
	if parent := sel.Closest("li, p, div"); parent.Length() > 0 {
		if t := squashText(parent.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	if t := precedingText(node, order); t != "" {
		parts = append(parts, t)
	}

	seen := make(map[string]bool)
	var unique []string
	for _, p := range parts {
		if !seen[p] {
			unique = append(unique, p)
			seen[p] = true
		}
	}
	return strings.Join(unique, " | ")
}

// nodeOrder records the document (pre-order) position of every node, so that
// "nearest preceding" relationships can be answered across subtrees.
type nodeOrder struct {
	pos   map[*html.Node]int
	nodes []*html.Node
}

func indexNodes(doc *goquery.Document) *nodeOrder {
	order := &nodeOrder{pos: make(map[*html.Node]int)}
	for _, root := range doc.Selection.Nodes {
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			order.pos[n] = len(order.nodes)
			order.nodes = append(order.nodes, n)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(root)
	}
	return order
}

func (o *nodeOrder) of(n *html.Node) int {
	if p, ok := o.pos[n]; ok {
		return p
	}
	return -1
}

func collectHeadings(doc *goquery.Document, order *nodeOrder) []heading {
	var hs []heading
	doc.Find("h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		hs = append(hs, heading{
			pos:  order.of(sel.Get(0)),
			text: squashText(sel.Text()),
		})
	})
	sort.Slice(hs, func(i, j int) bool { return hs[i].pos < hs[j].pos })
	return hs
}

// precedingText returns the nearest non-empty text node before the anchor in
// document order.
func precedingText(node *html.Node, order *nodeOrder) string {
	start := order.of(node)
	if start < 0 {
		return ""
	}
	for i := start - 1; i >= 0; i-- {
		n := order.nodes[i]
		if n.Type != html.TextNode {
			continue
		}
		if t := squashText(n.Data); t != "" {
			return t
		}
	}
	return ""
}

// squashText collapses runs of whitespace and trims, matching how the page's
// visible text reads.
func squashText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
