// Package handler contains the HTTP layer: request DTOs, response
// views and the Echo handlers for each role's route group. Handlers
// translate between HTTP and the service layer and hold no business
// rules of their own.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/queue"
	"github.com/iliyamo/lecturer-claims/internal/repository"
	"github.com/iliyamo/lecturer-claims/internal/service"
)

// dbTimeout bounds every database round trip issued from a handler.
const dbTimeout = 5 * time.Second

func contextWithTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// actorFromContext rebuilds the acting identity from the values the
// JWT middleware stored on the request context.
func actorFromContext(c echo.Context) (service.Actor, error) {
	idStr, _ := c.Get("user_id").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, errors.New("invalid token subject")
	}
	roleStr, _ := c.Get("role").(string)
	email, _ := c.Get("email").(string)
	return service.Actor{ID: id, Role: model.Role(roleStr), Email: email}, nil
}

// writeError maps a service or repository error onto the HTTP status
// taxonomy. Anything unrecognized is logged and reported as a plain
// 500 so internals never leak to the client.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email is already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotApproved):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Printf("handler: internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// attachmentView is the JSON shape of one claim attachment.
type attachmentView struct {
	ID       uint64 `json:"id"`
	FileName string `json:"file_name"`
	SavedAs  string `json:"saved_as"`
	Size     int64  `json:"size"`
}

// claimView is the JSON shape of a claim. TotalCents is computed at
// render time from hours and rate.
type claimView struct {
	ID            string           `json:"id"`
	LecturerName  string           `json:"lecturer_name"`
	LecturerEmail string           `json:"lecturer_email"`
	HoursWorked   int              `json:"hours_worked"`
	RateCents     int64            `json:"rate_cents"`
	TotalCents    int64            `json:"total_cents"`
	Notes         string           `json:"notes,omitempty"`
	Status        string           `json:"status"`
	Version       uint32           `json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	Attachments   []attachmentView `json:"attachments"`
}

func newClaimView(cl *model.Claim) claimView {
	atts := make([]attachmentView, 0, len(cl.Attachments))
	for _, a := range cl.Attachments {
		atts = append(atts, attachmentView{ID: a.ID, FileName: a.FileName, SavedAs: a.SavedAs, Size: a.Size})
	}
	return claimView{
		ID:            cl.ID.String(),
		LecturerName:  cl.LecturerName,
		LecturerEmail: cl.LecturerEmail,
		HoursWorked:   cl.HoursWorked,
		RateCents:     cl.RateCents,
		TotalCents:    cl.TotalCents(),
		Notes:         cl.Notes,
		Status:        string(cl.Status),
		Version:       cl.Version,
		CreatedAt:     cl.CreatedAt,
		Attachments:   atts,
	}
}

func newClaimViews(claims []model.Claim) []claimView {
	out := make([]claimView, 0, len(claims))
	for i := range claims {
		out = append(out, newClaimView(&claims[i]))
	}
	return out
}

// userView is the JSON shape of an account. The password hash never
// leaves the server.
type userView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	IsApproved      bool      `json:"is_approved"`
	CreatedAt       time.Time `json:"created_at"`
}

func newUserView(u *model.User) userView {
	return userView{
		ID:              u.ID.String(),
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		HourlyRateCents: u.HourlyRateCents,
		IsApproved:      u.IsApproved,
		CreatedAt:       u.CreatedAt,
	}
}

// activityView is the JSON shape of one journaled decision.
type activityView struct {
	ID        uint64    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func newActivityViews(entries []model.ActivityEntry) []activityView {
	out := make([]activityView, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityView{ID: e.ID, Message: e.Message, CreatedAt: e.CreatedAt})
	}
	return out
}

// parseHistoryFilter reads the optional status, from and to query
// parameters. Dates use YYYY-MM-DD and both bounds are inclusive.
func parseHistoryFilter(c echo.Context) (repository.HistoryFilter, error) {
	var f repository.HistoryFilter
	if s := c.QueryParam("status"); s != "" {
		if !model.ValidClaimStatus(s) {
			return f, &service.ValidationError{Field: "status", Reason: "unknown claim status"}
		}
		st := model.ClaimStatus(s)
		f.Status = &st
	}
	if s := c.QueryParam("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, &service.ValidationError{Field: "from", Reason: "must be a YYYY-MM-DD date"}
		}
		f.From = &t
	}
	if s := c.QueryParam("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, &service.ValidationError{Field: "to", Reason: "must be a YYYY-MM-DD date"}
		}
		f.To = &t
	}
	return f, nil
}

// publishDecision pushes a claim decision onto the broker on its own
// goroutine with a fresh context, so a slow or absent broker never
// delays the HTTP response that already carries the durable result.
func publishDecision(cl *model.Claim, from model.ClaimStatus, actorRole model.Role) {
	ev := queue.ClaimDecidedEvent{
		ClaimID:       cl.ID.String(),
		LecturerName:  cl.LecturerName,
		LecturerEmail: cl.LecturerEmail,
		HoursWorked:   cl.HoursWorked,
		TotalCents:    cl.TotalCents(),
		OldStatus:     string(from),
		NewStatus:     string(cl.Status),
		ActorRole:     string(actorRole),
		DecidedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		_ = queue.PublishClaimDecided(ctx, ev)
	}()
}
