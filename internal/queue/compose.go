package queue

import (
	"slices"
	"strings"

	"github.com/pders01/reviewq/internal/content"
)

// Sort labels offered to the operator. Only SortCreatedOn changes the order.
const (
	SortUpdated   = "updated"
	SortCreatedOn = "Created On"
)

// DefaultStatuses are the workflow states a review queue lists.
var DefaultStatuses = []string{"Review", "FlagReview"}

// Composer turns the operator's query state into a search request.
type Composer struct {
	PageSize int
	Statuses []string
}

func NewComposer(pageSize int, statuses []string) Composer {
	if pageSize <= 0 {
		pageSize = 10
	}
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}
	return Composer{PageSize: pageSize, Statuses: slices.Clone(statuses)}
}

// Compose is pure: equal inputs yield equal requests.
func (c Composer) Compose(search string, filters []string, sortBy string, page int) content.SearchRequest {
	if page < 0 {
		page = 0
	}

	order := content.OrderDesc
	if sortBy == SortCreatedOn {
		order = content.OrderAsc
	}

	return content.SearchRequest{
		Statuses:   slices.Clone(c.Statuses),
		Query:      strings.ToLower(search),
		Limit:      c.PageSize,
		Offset:     page * c.PageSize,
		Categories: CanonicalFilters(filters),
		Sort:       content.Sort{Field: content.SortFieldLastUpdated, Order: order},
	}
}

// CanonicalFilters returns filters deduplicated and sorted, or nil when no
// category restriction applies.
func CanonicalFilters(filters []string) []string {
	var out []string
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ToggleSort flips between the two sort labels.
func ToggleSort(sortBy string) string {
	if sortBy == SortCreatedOn {
		return SortUpdated
	}
	return SortCreatedOn
}

// SortLabel is the human label for a sort value.
func SortLabel(sortBy string) string {
	if sortBy == SortCreatedOn {
		return "Created On"
	}
	return "Last Updated"
}
