package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler returns a handler bound to the primary database.
func NewHealthHandler(db *sql.DB) *HealthHandler { return &HealthHandler{db: db} }

// Check reports ok when the process is up and the database answers a
// ping within the request deadline.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "error": "database unreachable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
