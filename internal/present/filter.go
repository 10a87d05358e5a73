package present

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mrlokans/shelfront/internal/entities"
)

const (
	StatusRead    = "read"
	StatusUnread  = "unread"
	StatusReading = "reading"

	// FilterAll is the "no restriction" value of the format and status selects.
	FilterAll = "all"
)

// Criteria is one snapshot of the filter controls. It is rebuilt from the
// submitted control values on every filter event and never persisted.
type Criteria struct {
	Search string
	Sort   string
	Format string
	Status string
}

// IsZero reports whether no filter restricts the collection.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Search) == "" && normalizeChoice(c.Format) == "" && normalizeChoice(c.Status) == ""
}

// Matcher decides whether an item passes the filter part of Criteria.
type Matcher func(item *entities.Item, c Criteria) bool

// Valuer extracts the comparable value of a sort field from an item.
type Valuer func(item *entities.Item, field string) Sortable

// Sortable is one item's value for the active sort field.
type Sortable struct {
	Num     float64
	Str     string
	Numeric bool
	Present bool
}

func Number(v float64) Sortable {
	return Sortable{Num: v, Numeric: true, Present: true}
}

func String(s string) Sortable {
	if s == "" {
		return Sortable{}
	}
	return Sortable{Str: Fold(s), Present: true}
}

// Fold case-folds s for case-insensitive comparisons.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// knownSortFields may be requested even when no loaded item carries them.
var knownSortFields = map[string]bool{
	"title": true, "author": true, "series": true, "series_position": true,
	"file_format": true, "file_size": true, "last_scanned": true,
	"reading_progress": true, "name": true, "id": true, "narrator": true,
	"duration": true, "page_count": true, "issue_number": true, "total_size": true,
}

var sortAliases = map[string]string{
	"date": "last_scanned",
	"size": "file_size",
}

// ParseSort splits a sort control value into field and direction. A leading
// "-" means descending.
func ParseSort(key string) (field string, desc bool) {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "-") {
		desc = true
		key = key[1:]
	}
	key = strings.ToLower(key)
	if alias, ok := sortAliases[key]; ok {
		key = alias
	}
	return key, desc
}

// FilterAndSort applies the default predicate and comparator.
func FilterAndSort(items []*entities.Item, c Criteria) []*entities.Item {
	return FilterAndSortWith(items, c, Match, Value)
}

// FilterAndSortWith filters with match and sorts with value. The result is a
// new slice; ties keep their input order. An absent or unrecognized sort
// field falls back to ascending title.
func FilterAndSortWith(items []*entities.Item, c Criteria, match Matcher, value Valuer) []*entities.Item {
	out := make([]*entities.Item, 0, len(items))
	for _, item := range items {
		if match(item, c) {
			out = append(out, item)
		}
	}

	field, desc := ParseSort(c.Sort)
	if !recognized(field, items) {
		field, desc = "title", false
	}

	keys := make(map[*entities.Item]Sortable, len(out))
	for _, item := range out {
		keys[item] = value(item, field)
	}

	slices.SortStableFunc(out, func(a, b *entities.Item) int {
		return CompareSortable(keys[a], keys[b], desc)
	})
	return out
}

func recognized(field string, items []*entities.Item) bool {
	if field == "" {
		return false
	}
	if knownSortFields[field] {
		return true
	}
	for _, item := range items {
		if item.Has(field) {
			return true
		}
	}
	return false
}

// CompareSortable orders present values before missing ones in either
// direction, numbers before strings.
func CompareSortable(a, b Sortable, desc bool) int {
	switch {
	case !a.Present && !b.Present:
		return 0
	case !a.Present:
		return 1
	case !b.Present:
		return -1
	}

	var c int
	switch {
	case a.Numeric && b.Numeric:
		c = cmp.Compare(a.Num, b.Num)
	case a.Numeric:
		c = -1
	case b.Numeric:
		c = 1
	default:
		c = strings.Compare(a.Str, b.Str)
	}
	if desc {
		return -c
	}
	return c
}

// IsDateField reports whether a sort field holds timestamps.
func IsDateField(field string) bool {
	return field == "last_scanned" ||
		strings.HasSuffix(field, "_at") ||
		strings.Contains(field, "date")
}

// IsSizeField reports whether a sort field holds byte counts.
func IsSizeField(field string) bool {
	return field == "size" || strings.HasSuffix(field, "_size")
}

// Value is the default Valuer.
func Value(item *entities.Item, field string) Sortable {
	if field == "title" {
		if item.Title != "" {
			return String(item.Title)
		}
		return String(item.Name)
	}

	v, ok := item.Field(field)
	if !ok {
		return Sortable{}
	}

	switch {
	case IsDateField(field):
		s, isString := v.(string)
		if !isString {
			return Sortable{}
		}
		t, ok := ParseTime(s)
		if !ok {
			return Sortable{}
		}
		return Number(float64(t.UnixMilli()))
	case IsSizeField(field):
		return SizeValue(v)
	}

	switch x := v.(type) {
	case float64:
		return Number(x)
	case bool:
		if x {
			return Number(1)
		}
		return Number(0)
	case string:
		return String(x)
	}
	return Sortable{}
}

// SizeValue coerces a decoded JSON value to an integer byte count.
func SizeValue(v any) Sortable {
	switch x := v.(type) {
	case float64:
		return Number(float64(int64(x)))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return Sortable{}
		}
		return Number(float64(n))
	}
	return Sortable{}
}

// Match is the default Matcher: search over title, author and series, exact
// format tag, and read status.
func Match(item *entities.Item, c Criteria) bool {
	if !MatchSearch(c.Search, item.Title, item.Author, item.Series) {
		return false
	}
	if f := normalizeChoice(c.Format); f != "" {
		if !item.Has("file_format") || !strings.EqualFold(item.FormatKey(), f) {
			return false
		}
	}
	return MatchStatus(item, c.Status)
}

// MatchSearch reports whether any of fields contains the search term,
// ignoring case. An empty term matches everything.
func MatchSearch(search string, fields ...string) bool {
	term := strings.TrimSpace(search)
	if term == "" {
		return true
	}
	term = Fold(term)
	for _, f := range fields {
		if f != "" && strings.Contains(Fold(f), term) {
			return true
		}
	}
	return false
}

// MatchStatus maps read/unread/reading to the item's flags. Items that do
// not carry the referenced field never match a status filter.
func MatchStatus(item *entities.Item, status string) bool {
	switch normalizeChoice(status) {
	case "":
		return true
	case StatusRead:
		return item.Has("is_read") && item.IsRead
	case StatusUnread:
		return item.Has("is_read") && !item.IsRead
	case StatusReading:
		if item.Has("is_reading") {
			return item.IsReading && !item.IsRead
		}
		if item.Has("reading_progress") {
			return item.Progress() > 0 && !item.IsRead
		}
		return false
	}
	return true
}

func normalizeChoice(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == FilterAll {
		return ""
	}
	return v
}
