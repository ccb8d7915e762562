package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lecturer-claims/internal/config"
	"github.com/iliyamo/lecturer-claims/internal/middleware"
	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
	"github.com/iliyamo/lecturer-claims/internal/service"
)

// CoordinatorHandler serves the verification stage of the pipeline.
type CoordinatorHandler struct {
	engine   *service.Engine
	rdb      *redis.Client
	cacheCfg config.CacheConfig
}

// NewCoordinatorHandler returns a CoordinatorHandler.
func NewCoordinatorHandler(engine *service.Engine, rdb *redis.Client, cacheCfg config.CacheConfig) *CoordinatorHandler {
	return &CoordinatorHandler{engine: engine, rdb: rdb, cacheCfg: cacheCfg}
}

// Queue returns the pending claims awaiting verification together
// with the caller's recent decisions.
func (h *CoordinatorHandler) Queue(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claims, err := h.engine.PendingQueue(ctx)
	if err != nil {
		return writeError(c, err)
	}
	rejectedStatus := model.StatusRejected
	rejected, err := h.engine.History(ctx, repository.HistoryFilter{Status: &rejectedStatus})
	if err != nil {
		return writeError(c, err)
	}
	recent, err := h.engine.RecentActivity(ctx, actor.ID, 10)
	if err != nil {
		return writeError(c, err)
	}
	stats := echo.Map{
		"pending":  len(claims),
		"rejected": len(rejected),
	}
	if n := len(claims); n > 0 {
		// newest-first, so the tail is the one waiting longest
		stats["oldest_pending_at"] = claims[n-1].CreatedAt
	}
	return c.JSON(http.StatusOK, echo.Map{
		"claims":          newClaimViews(claims),
		"stats":           stats,
		"recent_activity": newActivityViews(recent),
	})
}

// Verify moves a pending claim to verified.
func (h *CoordinatorHandler) Verify(c echo.Context) error {
	return h.decide(c, service.ActionVerify)
}

// Reject rejects a pending claim.
func (h *CoordinatorHandler) Reject(c echo.Context) error {
	return h.decide(c, service.ActionReject)
}

func (h *CoordinatorHandler) decide(c echo.Context, action service.Action) error {
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
	publishDecision(claim, model.StatusPending, actor.Role)
	return c.JSON(http.StatusOK, newClaimView(claim))
}

// History returns claims filtered by status and submission date.
func (h *CoordinatorHandler) History(c echo.Context) error {
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
