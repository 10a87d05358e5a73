package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfront/internal/database"
	"github.com/mrlokans/shelfront/internal/page"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	pages   *page.Registry
	version string
}

func NewHealthController(db *database.Database, pages *page.Registry, version string) *HealthController {
	return &HealthController{
		db:      db,
		pages:   pages,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.SQL()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
			if n, err := h.db.CountActiveSessions(); err == nil {
				checks["sessions"] = strconv.FormatInt(n, 10)
			}
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.pages != nil {
		checks["pages"] = strconv.Itoa(h.pages.Len())
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
