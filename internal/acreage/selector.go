package acreage

import (
	"sort"
	"time"
)

// ResolvedDownload is a candidate whose FinalURL has been confirmed, via
// header or content inspection, to serve the archive binary.
type ResolvedDownload struct {
	Year     string
	FinalURL string
	AsOf     *time.Time
}

// SelectLatest picks the authoritative archive among resolved candidates for
// one year. Dated entries win by latest as-of date (stable sort, so ties keep
// encounter order). With no dated entries the first encountered is returned,
// keeping discovery order deterministic. Empty input yields nil.
func SelectLatest(resolved []ResolvedDownload) *ResolvedDownload {
	if len(resolved) == 0 {
		return nil
	}

	var dated []ResolvedDownload
	for _, r := range resolved {
		if r.AsOf != nil {
			dated = append(dated, r)
		}
	}

	if len(dated) > 0 {
		sort.SliceStable(dated, func(i, j int) bool {
			return dated[i].AsOf.Before(*dated[j].AsOf)
		})
		latest := dated[len(dated)-1]
		return &latest
	}

	first := resolved[0]
	return &first
}
