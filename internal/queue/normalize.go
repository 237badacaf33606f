package queue

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pders01/reviewq/internal/content"
)

// MissingTimestamp is shown for items whose last-update time is unknown.
const MissingTimestamp = "—"

// DisplayRow is the flattened, render-ready form of an Item.
type DisplayRow struct {
	Identifier    string
	Name          string
	Description   string
	ContentType   string
	Status        string
	MimeType      string
	AppIcon       string
	LastUpdatedOn time.Time
	LastUpdated   string
	QuestionSet   bool
}

// ResultPage is one page of the queue as returned by the collaborator.
type ResultPage struct {
	Items      []content.Item
	TotalCount int
}

// Normalize concatenates the content collection and then the question-set
// collection, preserving each collection's order.
func Normalize(resp *content.SearchResponse, now time.Time, defaultIcon string) []DisplayRow {
	if resp == nil {
		return []DisplayRow{}
	}

	rows := make([]DisplayRow, 0, len(resp.Content)+len(resp.QuestionSet))
	for _, item := range resp.Content {
		rows = append(rows, project(item, false, now, defaultIcon))
	}
	for _, item := range resp.QuestionSet {
		rows = append(rows, project(item, true, now, defaultIcon))
	}
	return rows
}

// Page flattens a response into a ResultPage in display order.
func Page(resp *content.SearchResponse) ResultPage {
	if resp == nil {
		return ResultPage{}
	}
	items := make([]content.Item, 0, len(resp.Content)+len(resp.QuestionSet))
	items = append(items, resp.Content...)
	items = append(items, resp.QuestionSet...)
	return ResultPage{Items: items, TotalCount: resp.Count}
}

func project(item content.Item, questionSet bool, now time.Time, defaultIcon string) DisplayRow {
	icon := item.AppIcon
	if icon == "" {
		icon = defaultIcon
	}

	updated, ok := content.ParseTimestamp(item.LastUpdatedOn)
	label := MissingTimestamp
	if ok {
		label = RelativeTime(updated, now)
	}

	return DisplayRow{
		Identifier:    item.Identifier,
		Name:          item.Name,
		Description:   item.Description,
		ContentType:   item.PrimaryCategory,
		Status:        item.Status,
		MimeType:      item.MimeType,
		AppIcon:       icon,
		LastUpdatedOn: updated,
		LastUpdated:   label,
		QuestionSet:   questionSet,
	}
}

var relativeMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "just now", DivBy: 1},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: humanize.Day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "yesterday", DivBy: 1},
	{D: humanize.Week, Format: "%d days %s", DivBy: humanize.Day},
}

// RelativeTime renders t relative to now, falling back to a date after a week.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return t.Local().Format("Jan 2, 2006 15:04")
	}
	if d >= humanize.Week {
		return t.Local().Format("Jan 2, 2006")
	}
	return humanize.CustomRelTime(t, now, "ago", "from now", relativeMagnitudes)
}
