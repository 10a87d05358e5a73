package present

import (
	"strconv"
	"time"

	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/utils"
)

// Severity of a toast. At most one toast per severity is visible.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// DefaultToastDuration is used when a caller passes zero.
const DefaultToastDuration = 5 * time.Second

// Surface is where panels, toasts and client effects are written. The page
// document implements it.
type Surface interface {
	Set(selector string, node gomponents.Node)
	PushToast(severity Severity, message string, duration time.Duration)
	Trigger(name string, payload any)
}

type Toast struct {
	Severity  Severity
	Message   string
	ExpiresAt time.Time
}

// ErrorOptions configure the retry button and login link of an error panel.
type ErrorOptions struct {
	RetryAction string
	RetryItemID int64
	LoginURL    string
}

func LoadingPanel(message string) gomponents.Node {
	if message == "" {
		message = "Loading..."
	}
	return html.Div(
		html.Class("state-panel state-loading"),
		html.Role("status"),
		html.Div(html.Class("spinner-border"), gomponents.Attr("aria-hidden", "true")),
		html.P(Text(message)),
	)
}

func EmptyPanel(message string) gomponents.Node {
	if message == "" {
		message = "Nothing to show."
	}
	return html.Div(
		html.Class("state-panel state-empty"),
		html.I(html.Class("bi bi-inbox")),
		html.P(Text(message)),
	)
}

// ErrorPanel shows err with a retry button. Authentication failures also get
// a login link.
func ErrorPanel(err error, opts ErrorOptions) gomponents.Node {
	message := "Something went wrong."
	if err != nil {
		message = err.Error()
	}

	var retry gomponents.Node
	if opts.RetryAction != "" {
		retry = html.Button(
			html.Type("button"),
			html.Class("btn btn-outline-primary btn-sm"),
			gomponents.Attr("data-action", opts.RetryAction),
			gomponents.If(opts.RetryItemID != 0, gomponents.Attr("data-item-id", strconv.FormatInt(opts.RetryItemID, 10))),
			gomponents.Text("Retry"),
		)
	}

	return html.Div(
		html.Class("state-panel state-error"),
		html.Role("alert"),
		html.I(html.Class("bi bi-exclamation-triangle")),
		html.P(html.Class("error-message"), Text(message)),
		retry,
		gomponents.If(errors.IsAuthentication(err) && opts.LoginURL != "",
			html.A(html.Class("btn btn-primary btn-sm login-link"), html.Href(opts.LoginURL), gomponents.Text("Log in")),
		),
	)
}

// ToastNode renders one toast. The client removes it after its remaining
// lifetime and reports the dismissal.
func ToastNode(t Toast, now time.Time) gomponents.Node {
	remaining := t.ExpiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	role := "status"
	if t.Severity == SeverityError {
		role = "alert"
	}
	return html.Div(
		html.Class("toast-message toast-"+string(t.Severity)),
		html.Role(role),
		gomponents.Attr("data-severity", string(t.Severity)),
		gomponents.Attr("data-expires-in", strconv.FormatInt(remaining.Milliseconds(), 10)),
		html.Span(html.Class("toast-body"), Text(t.Message)),
		html.Button(
			html.Type("button"),
			html.Class("btn-close"),
			gomponents.Attr("aria-label", "Close"),
			gomponents.Attr("data-action", "dismissToast"),
			gomponents.Attr("data-severity", string(t.Severity)),
		),
	)
}

// ToastStack renders the toast region content.
func ToastStack(toasts []Toast, now time.Time) gomponents.Node {
	nodes := make([]gomponents.Node, 0, len(toasts))
	for _, t := range toasts {
		nodes = append(nodes, ToastNode(t, now))
	}
	return gomponents.Group(nodes)
}

func ShowLoading(s Surface, selector, message string) {
	s.Set(selector, LoadingPanel(message))
}

func ShowEmpty(s Surface, selector, message string) {
	s.Set(selector, EmptyPanel(message))
}

func ShowError(s Surface, selector string, err error, opts ErrorOptions) {
	s.Set(selector, ErrorPanel(err, opts))
}

func ShowToast(s Surface, severity Severity, message string, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	s.PushToast(severity, message, duration)
}

// DownloadFile asks the browser to click a synthetic <a download> link.
func DownloadFile(s Surface, url, suggestedName string) {
	payload := map[string]string{"url": url}
	if suggestedName != "" {
		payload["filename"] = utils.SanitizeFilename(suggestedName)
	}
	s.Trigger("download", payload)
}
