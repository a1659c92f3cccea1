// Package history manages the client-side view of review history:
// pagination keys for fetching pages, recency grouping for display, and
// optimistic removal after a delete.
package history

import (
	"fmt"
	"time"

	"github.com/codecritic/codecritic/internal/core"
)

// PageSize is the number of reviews requested per history page.
const PageSize = 20

// Grouped buckets reviews by how recently they were created. Buckets
// preserve the input order (newest first).
type Grouped struct {
	Today     []core.Review
	Yesterday []core.Review
	LastWeek  []core.Review
	LastMonth []core.Review
	Older     []core.Review
}

// GroupByDate splits reviews into recency buckets relative to now.
func GroupByDate(reviews []core.Review, now time.Time) Grouped {
	oneWeekAgo := now.AddDate(0, 0, -7)
	oneMonthAgo := now.AddDate(0, -1, 0)

	var g Grouped
	for _, r := range reviews {
		created := r.CreatedAt
		switch {
		case sameDay(created, now):
			g.Today = append(g.Today, r)
		case sameDay(created, now.AddDate(0, 0, -1)):
			g.Yesterday = append(g.Yesterday, r)
		case created.After(oneWeekAgo):
			g.LastWeek = append(g.LastWeek, r)
		case created.After(oneMonthAgo):
			g.LastMonth = append(g.LastMonth, r)
		default:
			g.Older = append(g.Older, r)
		}
	}
	return g
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PaginationKey builds the history request path for pageIndex given the
// previously fetched page. It returns ok=false when no further page should
// be fetched: the previous page said hasMore=false, or it was empty.
func PaginationKey(pageIndex int, previous *core.HistoryPage) (string, bool) {
	if previous != nil && !previous.HasMore {
		return "", false
	}

	if pageIndex == 0 {
		return fmt.Sprintf("/api/history?limit=%d", PageSize), true
	}

	if previous == nil || len(previous.Reviews) == 0 {
		return "", false
	}

	last := previous.Reviews[len(previous.Reviews)-1]
	return fmt.Sprintf("/api/history?ending_before=%s&limit=%d", last.ID, PageSize), true
}

// RemoveReview drops the review with the given id from every page,
// reflecting a delete before the next refetch.
func RemoveReview(pages []core.HistoryPage, id string) []core.HistoryPage {
	out := make([]core.HistoryPage, len(pages))
	for i, page := range pages {
		kept := make([]core.Review, 0, len(page.Reviews))
		for _, r := range page.Reviews {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		out[i] = core.HistoryPage{Reviews: kept, HasMore: page.HasMore}
	}
	return out
}
