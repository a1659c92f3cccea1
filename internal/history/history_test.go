package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecritic/codecritic/internal/core"
)

func rev(id string, createdAt time.Time) core.Review {
	return core.Review{ID: id, CreatedAt: createdAt}
}

func TestGroupByDate(t *testing.T) {
	// Fixed midday reference keeps day boundaries unambiguous.
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	reviews := []core.Review{
		rev("today-1", now.Add(-2*time.Hour)),
		rev("today-2", now.Add(-11*time.Hour)),
		rev("yesterday", now.AddDate(0, 0, -1)),
		rev("week", now.AddDate(0, 0, -3)),
		rev("month", now.AddDate(0, 0, -20)),
		rev("older", now.AddDate(0, -2, 0)),
	}

	g := GroupByDate(reviews, now)

	assert.Equal(t, []string{"today-1", "today-2"}, ids(g.Today))
	assert.Equal(t, []string{"yesterday"}, ids(g.Yesterday))
	assert.Equal(t, []string{"week"}, ids(g.LastWeek))
	assert.Equal(t, []string{"month"}, ids(g.LastMonth))
	assert.Equal(t, []string{"older"}, ids(g.Older))
}

func TestGroupByDate_EarlyMorningYesterdayBoundary(t *testing.T) {
	// 00:30 today: a review from 23:30 is "yesterday" by calendar date even
	// though it is only an hour old.
	now := time.Date(2026, 8, 30, 0, 30, 0, 0, time.UTC)
	g := GroupByDate([]core.Review{rev("r", now.Add(-time.Hour))}, now)

	assert.Empty(t, g.Today)
	assert.Equal(t, []string{"r"}, ids(g.Yesterday))
}

func ids(reviews []core.Review) []string {
	out := make([]string, len(reviews))
	for i, r := range reviews {
		out[i] = r.ID
	}
	return out
}

func TestPaginationKey(t *testing.T) {
	tests := []struct {
		name      string
		pageIndex int
		previous  *core.HistoryPage
		wantPath  string
		wantOK    bool
	}{
		{
			name:      "first page",
			pageIndex: 0,
			previous:  nil,
			wantPath:  "/api/history?limit=20",
			wantOK:    true,
		},
		{
			name:      "next page keyed by last review",
			pageIndex: 1,
			previous: &core.HistoryPage{
				Reviews: []core.Review{rev("a", time.Now()), rev("b", time.Now())},
				HasMore: true,
			},
			wantPath: "/api/history?ending_before=b&limit=20",
			wantOK:   true,
		},
		{
			name:      "previous page exhausted",
			pageIndex: 1,
			previous:  &core.HistoryPage{Reviews: []core.Review{rev("a", time.Now())}, HasMore: false},
			wantOK:    false,
		},
		{
			name:      "previous page empty",
			pageIndex: 1,
			previous:  &core.HistoryPage{Reviews: nil, HasMore: true},
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := PaginationKey(tt.pageIndex, tt.previous)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantPath, path)
			}
		})
	}
}

func TestRemoveReview(t *testing.T) {
	pages := []core.HistoryPage{
		{Reviews: []core.Review{rev("a", time.Now()), rev("b", time.Now())}, HasMore: true},
		{Reviews: []core.Review{rev("c", time.Now())}, HasMore: false},
	}

	got := RemoveReview(pages, "b")

	assert.Equal(t, []string{"a"}, ids(got[0].Reviews))
	assert.Equal(t, []string{"c"}, ids(got[1].Reviews))
	assert.True(t, got[0].HasMore)

	// Unknown ids leave every page untouched.
	got = RemoveReview(pages, "zzz")
	assert.Equal(t, []string{"a", "b"}, ids(got[0].Reviews))
}
