package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lecturer-claims/internal/config"
	"github.com/iliyamo/lecturer-claims/internal/middleware"
	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/service"
)

// ManagerHandler serves the final approval stage of the pipeline.
type ManagerHandler struct {
	engine   *service.Engine
	rdb      *redis.Client
	cacheCfg config.CacheConfig
}

// NewManagerHandler returns a ManagerHandler.
func NewManagerHandler(engine *service.Engine, rdb *redis.Client, cacheCfg config.CacheConfig) *ManagerHandler {
	return &ManagerHandler{engine: engine, rdb: rdb, cacheCfg: cacheCfg}
}

// Queue returns the verified claims awaiting approval plus the total
// amount that would be paid out if all of them were approved.
func (h *ManagerHandler) Queue(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claims, err := h.engine.VerifiedQueue(ctx)
	if err != nil {
		return writeError(c, err)
	}
	var awaitingCents int64
	for i := range claims {
		awaitingCents += claims[i].TotalCents()
	}
	recent, err := h.engine.RecentActivity(ctx, actor.ID, 10)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"claims":          newClaimViews(claims),
		"awaiting":        len(claims),
		"awaiting_cents":  awaitingCents,
		"recent_activity": newActivityViews(recent),
	})
}

// Approve moves a verified claim to approved.
func (h *ManagerHandler) Approve(c echo.Context) error {
	return h.decide(c, service.ActionApprove)
}

// Reject rejects a verified claim.
func (h *ManagerHandler) Reject(c echo.Context) error {
	return h.decide(c, service.ActionReject)
}

func (h *ManagerHandler) decide(c echo.Context, action service.Action) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id: must be a UUID"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claim, err := h.engine.Transition(ctx, actor, action, id)
	if err != nil {
		return writeError(c, err)
	}
	middleware.InvalidateCache(h.rdb, h.cacheCfg, c)
	publishDecision(claim, model.StatusVerified, actor.Role)
	return c.JSON(http.StatusOK, newClaimView(claim))
}

// History returns claims filtered by status and submission date.
func (h *ManagerHandler) History(c echo.Context) error {
	f, err := parseHistoryFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claims, err := h.engine.History(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": newClaimViews(claims), "count": len(claims)})
}
