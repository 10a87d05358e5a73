package entities

import (
	"encoding/json"
	"errors"
	"strings"
)

// Item is one ebook, comic, audiobook, book-in-series or series record as
// served by the library service. Fields the frontend does not know about are
// kept verbatim and survive a JSON round trip.
type Item struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	CoverURL        string   `json:"cover_url,omitempty"`
	Series          string   `json:"series,omitempty"`
	SeriesPosition  *float64 `json:"series_position,omitempty"`
	FileFormat      string   `json:"file_format,omitempty"`
	FileSize        int64    `json:"file_size,omitempty"`
	LastScanned     string   `json:"last_scanned,omitempty"`
	IsRead          bool     `json:"is_read"`
	IsReading       bool     `json:"is_reading,omitempty"`
	ReadingProgress *float64 `json:"reading_progress,omitempty"`
	FilePath        string   `json:"file_path,omitempty"`
	Description     string   `json:"description,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	Language        string   `json:"language,omitempty"`

	// Ebooks and comics
	CompanionFiles []CompanionFile `json:"companion_files,omitempty"`
	IssueNumber    string          `json:"issue_number,omitempty"`
	PageCount      int             `json:"page_count,omitempty"`

	// Audiobooks
	Narrator     string  `json:"narrator,omitempty"`
	Duration     float64 `json:"duration,omitempty"` // seconds
	Bitrate      int     `json:"bitrate,omitempty"`  // kbps
	SampleRate   int     `json:"sample_rate,omitempty"`
	Channels     int     `json:"channels,omitempty"`
	ChapterCount int     `json:"chapter_count,omitempty"`

	// Series
	Name      string   `json:"name,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Books     []*Item  `json:"books,omitempty"`
	TotalSize int64    `json:"total_size,omitempty"`

	raw map[string]json.RawMessage
}

type CompanionFile struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	FileType    string `json:"file_type,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// plain drops Item's JSON methods so the default codec can be reused.
type plain Item

// UnmarshalJSON decodes the known fields leniently: a field whose JSON type
// does not match is left at its zero value but remains reachable via Field.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}

	*i = Item(p)
	i.raw = raw
	return nil
}

// MarshalJSON writes the original document with the mutable fields patched in.
func (i Item) MarshalJSON() ([]byte, error) {
	if i.raw == nil {
		return json.Marshal(plain(i))
	}

	out := make(map[string]json.RawMessage, len(i.raw)+1)
	for k, v := range i.raw {
		out[k] = v
	}

	read, err := json.Marshal(i.IsRead)
	if err != nil {
		return nil, err
	}
	out["is_read"] = read

	if len(i.Books) > 0 {
		books, err := json.Marshal(i.Books)
		if err != nil {
			return nil, err
		}
		out["books"] = books
	}

	return json.Marshal(out)
}

func (i *Item) ensureRaw() {
	if i.raw != nil {
		return
	}
	data, err := json.Marshal(plain(*i))
	if err != nil {
		i.raw = map[string]json.RawMessage{}
		return
	}
	if err := json.Unmarshal(data, &i.raw); err != nil {
		i.raw = map[string]json.RawMessage{}
	}
}

// Has reports whether the record carries a non-null value for a top-level field.
func (i *Item) Has(name string) bool {
	i.ensureRaw()
	v, ok := i.raw[name]
	return ok && string(v) != "null"
}

// Field returns a top-level field decoded into a generic value. Numbers come
// back as float64, the same as encoding/json does for interface targets.
func (i *Item) Field(name string) (any, bool) {
	switch name {
	case "is_read":
		return i.IsRead, true
	case "books":
		if i.Books == nil {
			return nil, false
		}
		return i.Books, true
	}

	i.ensureRaw()
	v, ok := i.raw[name]
	if !ok || string(v) == "null" {
		return nil, false
	}

	var out any
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Extra returns the raw value of a field unknown to the typed struct.
func (i *Item) Extra(name string) json.RawMessage {
	i.ensureRaw()
	return i.raw[name]
}

// SetRead updates the read flag in both the typed and the raw view.
func (i *Item) SetRead(read bool) {
	i.IsRead = read
	if read {
		i.IsReading = false
	}
	if i.raw == nil {
		return
	}
	if b, err := json.Marshal(read); err == nil {
		i.raw["is_read"] = b
	}
	if read {
		if _, ok := i.raw["is_reading"]; ok {
			i.raw["is_reading"] = json.RawMessage("false")
		}
	}
}

// Progress returns reading progress clamped to [0, 100].
func (i *Item) Progress() float64 {
	if i.ReadingProgress == nil {
		return 0
	}
	p := *i.ReadingProgress
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Complete is true for read items regardless of their progress.
func (i *Item) Complete() bool {
	return i.IsRead
}

// DisplayTitle falls back to the series name for series records.
func (i *Item) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	if i.Name != "" {
		return i.Name
	}
	return "Untitled"
}

// AuthorList returns the series author list, or the single author.
func (i *Item) AuthorList() []string {
	if len(i.Authors) > 0 {
		return i.Authors
	}
	if i.Author != "" {
		return []string{i.Author}
	}
	return nil
}

// FormatTag is the file format as displayed; FormatKey is used for comparisons.
func (i *Item) FormatTag() string {
	return i.FileFormat
}

func (i *Item) FormatKey() string {
	return strings.ToUpper(strings.TrimSpace(i.FileFormat))
}

// FindBook returns the nested book with the given id.
func (i *Item) FindBook(id int64) *Item {
	for _, b := range i.Books {
		if b != nil && b.ID == id {
			return b
		}
	}
	return nil
}
