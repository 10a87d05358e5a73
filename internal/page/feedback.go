package page

import (
	"slices"

	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/errors"
)

func (p *Page) showFeedback(err error) {
	var e *errors.Error
	msg := err.Error()
	if errors.As(err, &e) {
		msg = e.Message
	}

	fields := errors.FieldErrors(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	items := make([]gomponents.Node, 0, len(names))
	for _, name := range names {
		items = append(items, html.Li(
			gomponents.Attr("data-field", name),
			html.Strong(gomponents.Text(name)),
			gomponents.Text(" "+fields[name]),
		))
	}

	p.Doc.Set(FeedbackRegion, html.Div(
		html.Class("alert alert-warning py-1 px-2 small mb-0 action-feedback"),
		html.Role("alert"),
		html.Span(gomponents.Text(msg)),
		gomponents.If(len(items) > 0, html.Ul(html.Class("mb-0"), gomponents.Group(items))),
	))

	p.mu.Lock()
	p.feedback = true
	p.mu.Unlock()
}

func (p *Page) clearFeedback() {
	p.mu.Lock()
	shown := p.feedback
	p.feedback = false
	p.mu.Unlock()

	if shown {
		p.Doc.Set(FeedbackRegion, nil)
	}
}
