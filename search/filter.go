package search

import "github.com/MohanGuptaKoduru/ServiceLink/core"

// FilterAvailable keeps results whose technician is accepting bookings.
// Order is preserved.
func FilterAvailable(results []*core.SearchResult) []*core.SearchResult {
	out := make([]*core.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Technician != nil && r.Technician.Available {
			out = append(out, r)
		}
	}
	return out
}

// Limit returns at most n results. n <= 0 means no limit.
func Limit(results []*core.SearchResult, n int) []*core.SearchResult {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}
