package section

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrlokans/shelfront/internal/errors"
)

// Section is one of the four library partitions.
type Section string

const (
	Ebooks     Section = "ebooks"
	Comics     Section = "comics"
	Audiobooks Section = "audiobooks"
	Series     Section = "series"
)

// All lists the sections in navigation order.
var All = []Section{Ebooks, Comics, Audiobooks, Series}

func Parse(name string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All {
		if s == known {
			return s, nil
		}
	}
	return "", errors.NotFoundf("unknown section %q", name)
}

// Key is the list response field carrying the collection.
func (s Section) Key() string {
	return string(s)
}

// Singular is the detail response field carrying one item.
func (s Section) Singular() string {
	switch s {
	case Ebooks:
		return "ebook"
	case Comics:
		return "comic"
	case Audiobooks:
		return "audiobook"
	}
	return string(s)
}

// GlobalName is the name page templates use to reach the section's manager.
func (s Section) GlobalName() string {
	switch s {
	case Ebooks:
		return "ebookManager"
	case Comics:
		return "comicsManager"
	case Audiobooks:
		return "audiobooksManager"
	case Series:
		return "seriesManager"
	}
	return ""
}

func (s Section) Title() string {
	return cases.Title(language.English).String(string(s))
}

// Icon is the Bootstrap icon used for missing covers.
func (s Section) Icon() string {
	switch s {
	case Comics:
		return "bi-journal-richtext"
	case Audiobooks:
		return "bi-headphones"
	case Series:
		return "bi-collection"
	}
	return "bi-book"
}

// Endpoint names an optional mutation or lookup URL.
type Endpoint string

const (
	EndpointToggleRead     Endpoint = "toggle_read"
	EndpointDownload       Endpoint = "download"
	EndpointCompanionFiles Endpoint = "companion_files"
	EndpointMarkRead       Endpoint = "mark_read"
	EndpointBookDetail     Endpoint = "book_detail"
	EndpointBookDownload   Endpoint = "book_download"
)

// OptionalEndpoints are consumed only by the sections that need them. An
// empty value means the operation is unavailable.
type OptionalEndpoints struct {
	ToggleRead     string `validate:"omitempty,idtemplate"`
	Download       string `validate:"omitempty,idtemplate"`
	CompanionFiles string `validate:"omitempty,idtemplate"`
	MarkRead       string `validate:"omitempty,idtemplate"`
	BookDetail     string `validate:"omitempty,idtemplate"`
	BookDownload   string `validate:"omitempty,idtemplate"`
}

func (e OptionalEndpoints) template(name Endpoint) string {
	switch name {
	case EndpointToggleRead:
		return e.ToggleRead
	case EndpointDownload:
		return e.Download
	case EndpointCompanionFiles:
		return e.CompanionFiles
	case EndpointMarkRead:
		return e.MarkRead
	case EndpointBookDetail:
		return e.BookDetail
	case EndpointBookDownload:
		return e.BookDownload
	}
	return ""
}

func (e OptionalEndpoints) Has(name Endpoint) bool {
	return e.template(name) != ""
}

// URL expands the endpoint for id. ok is false when the endpoint is absent.
func (e OptionalEndpoints) URL(name Endpoint, id int64) (string, bool) {
	t := e.template(name)
	if t == "" {
		return "", false
	}
	return ExpandID(t, id)
}

// Config binds a manager to its containers and endpoints.
type Config struct {
	ListContainer   string `validate:"required,selector"`
	DetailContainer string `validate:"required,selector"`
	CountBadge      string `validate:"required,selector"`
	APIEndpoint     string `validate:"required"`
	DetailEndpoint  string `validate:"omitempty,idtemplate"`
	Endpoints       OptionalEndpoints
}

// DetailURL expands DetailEndpoint for id.
func (c Config) DetailURL(id int64) (string, bool) {
	if c.DetailEndpoint == "" {
		return "", false
	}
	return ExpandID(c.DetailEndpoint, id)
}

// Validate checks selectors and URL templates.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return ValidationError("invalid section configuration", err)
	}
	return nil
}

// ExpandID substitutes id into a URL template. "{id}" is the placeholder;
// templates ending in a literal "/0/" segment are accepted as well.
func ExpandID(template string, id int64) (string, bool) {
	sid := strconv.FormatInt(id, 10)
	if strings.Contains(template, "{id}") {
		return strings.ReplaceAll(template, "{id}", sid), true
	}
	if strings.HasSuffix(template, "/0/") {
		return strings.TrimSuffix(template, "0/") + sid + "/", true
	}
	if strings.HasSuffix(template, "/0") {
		return strings.TrimSuffix(template, "0") + sid, true
	}
	return "", false
}

// DefaultConfig returns the container selectors of the page layout and the
// library service's conventional endpoints for s.
func DefaultConfig(s Section) Config {
	cfg := Config{
		ListContainer:   "#items-list",
		DetailContainer: "#detail-pane",
		CountBadge:      "#item-count",
	}
	switch s {
	case Ebooks:
		cfg.APIEndpoint = "/ebooks/ajax/list/"
		cfg.DetailEndpoint = "/ebooks/ajax/detail/{id}/"
		cfg.Endpoints = OptionalEndpoints{
			ToggleRead:     "/ebooks/ajax/toggle_read/{id}/",
			Download:       "/ebooks/ajax/download/{id}/",
			CompanionFiles: "/ebooks/ajax/companion_files/{id}/",
		}
	case Comics:
		cfg.APIEndpoint = "/comics/ajax/list/"
		cfg.DetailEndpoint = "/comics/ajax/detail/{id}/"
		cfg.Endpoints = OptionalEndpoints{
			ToggleRead: "/comics/ajax/toggle_read/{id}/",
			Download:   "/comics/ajax/download/{id}/",
		}
	case Audiobooks:
		cfg.APIEndpoint = "/audiobooks/ajax/list/"
		cfg.Endpoints = OptionalEndpoints{
			ToggleRead: "/audiobooks/ajax/toggle_read/{id}/",
			Download:   "/audiobooks/ajax/download/{id}/",
		}
	case Series:
		cfg.APIEndpoint = "/series/ajax/list/"
		cfg.DetailEndpoint = "/series/ajax/detail/{id}/"
		cfg.Endpoints = OptionalEndpoints{
			ToggleRead:   "/ebooks/ajax/toggle_read/{id}/",
			MarkRead:     "/series/ajax/mark_read/{id}/",
			Download:     "/series/ajax/download/{id}/",
			BookDetail:   "/ebooks/ajax/detail/{id}/",
			BookDownload: "/ebooks/ajax/download/{id}/",
		}
	}
	return cfg
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("idtemplate", func(fl validator.FieldLevel) bool {
		_, ok := ExpandID(fl.Field().String(), 1)
		return ok
	})
	_ = v.RegisterValidation("selector", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) > 1 && s[0] == '#' && !strings.ContainsAny(s[1:], " .>[]:#,")
	})
	return v
}

// Validator exposes the package's validator so event payloads share the
// custom tags.
func Validator() *validator.Validate {
	return validate
}

// ValidationError converts validator output into a VALIDATION error with
// per-field details.
func ValidationError(msg string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Validation(msg).WithCause(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return errors.ValidationWithDetails(msg, fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "selector":
		return "must be an #id selector"
	case "idtemplate":
		return `must contain "{id}" or end in "/0/"`
	case "oneof":
		return "must be one of " + fe.Param()
	case "numeric":
		return "must be a number"
	case "max":
		return "is too long"
	case "min":
		return "is too small"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
