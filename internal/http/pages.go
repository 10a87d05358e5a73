package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfront/internal/auth"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/page"
	"github.com/mrlokans/shelfront/internal/section"
)

// anonymousVisitor owns every page when sessions are disabled.
const anonymousVisitor = "anonymous"

// PagesController serves section pages and the events they post.
type PagesController struct {
	pages    *page.Registry
	newPage  PageFactory
	sessions *auth.SessionManager
}

func NewPagesController(pages *page.Registry, newPage PageFactory, sessions *auth.SessionManager) *PagesController {
	return &PagesController{
		pages:    pages,
		newPage:  newPage,
		sessions: sessions,
	}
}

func (pc *PagesController) visitor(c *gin.Context) (string, error) {
	if pc.sessions == nil {
		return anonymousVisitor, nil
	}
	return pc.sessions.VisitorID(c.Request.Context())
}

// Index sends visitors to the default section.
// GET /
func (pc *PagesController) Index(c *gin.Context) {
	c.Redirect(http.StatusFound, "/"+string(section.Ebooks))
}

// Show creates a page for a section and renders its layout. The list is
// loaded by the page's first event.
// GET /:section
func (pc *PagesController) Show(c *gin.Context) {
	s, err := section.Parse(c.Param("section"))
	if err != nil {
		respondNotFound(c, "section")
		return
	}

	owner, err := pc.visitor(c)
	if err != nil {
		respondInternalError(c, err, "visitor id")
		return
	}

	opts, err := pc.newPage(c, s)
	if err != nil {
		respondAppError(c, err, "page options")
		return
	}

	p, err := pc.pages.Create(c.Request.Context(), owner, opts)
	if err != nil {
		respondAppError(c, err, "create page")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := pageLayout(p, auth.GetCSRFToken(c)).Render(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func (pc *PagesController) page(c *gin.Context) (*page.Page, bool) {
	owner, err := pc.visitor(c)
	if err != nil {
		respondInternalError(c, err, "visitor id")
		return nil, false
	}
	p, err := pc.pages.Get(c.Param("pageID"), owner)
	if err != nil {
		// The page expired or belongs to another session; a reload makes a
		// new one.
		if isHTMXRequest(c) {
			c.Header("HX-Refresh", "true")
		}
		respondAppError(c, err, "page lookup")
		return nil, false
	}
	return p, true
}

// Event dispatches one user action and answers with the resulting
// out-of-band swaps. Client-side effects travel in the HX-Trigger header.
// POST /pages/:pageID/events
func (pc *PagesController) Event(c *gin.Context) {
	p, ok := pc.page(c)
	if !ok {
		return
	}

	var ev page.Event
	if err := c.ShouldBind(&ev); err != nil {
		respondBadRequest(c, "invalid event: "+err.Error())
		return
	}

	dispatchErr := p.Dispatch(c.Request.Context(), ev)
	patch := p.Flush()

	header, err := patch.TriggerHeader()
	if err != nil {
		respondInternalError(c, err, "encode triggers")
		return
	}
	if header != "" {
		c.Header("HX-Trigger", header)
	}
	if errors.Is(dispatchErr, errors.ErrValidation) {
		c.Header("X-Action-Error", string(errors.CodeValidation))
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := patch.Render(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// Cover serves the cached cover of an item shown on the page.
// GET /pages/:pageID/covers/:id
func (pc *PagesController) Cover(c *gin.Context) {
	p, ok := pc.page(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	path, err := p.Cover(c.Request.Context(), id)
	if err != nil {
		if errors.CodeOf(err) != errors.CodeNotFound {
			_ = c.Error(err)
		}
		respondAppError(c, err, "cover")
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.File(path)
}
