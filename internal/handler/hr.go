package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
	"github.com/iliyamo/lecturer-claims/internal/service"
)

// HRHandler serves account administration and the payment report.
type HRHandler struct {
	dir    *service.Directory
	engine *service.Engine
}

// NewHRHandler returns an HRHandler.
func NewHRHandler(dir *service.Directory, engine *service.Engine) *HRHandler {
	return &HRHandler{dir: dir, engine: engine}
}

// Dashboard returns account counts per role, the number of lecturers
// still awaiting approval and claim counts per status.
func (h *HRHandler) Dashboard(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	users, err := h.dir.Users(ctx)
	if err != nil {
		return writeError(c, err)
	}
	roleCounts := map[string]int{}
	var awaiting int
	for i := range users {
		roleCounts[string(users[i].Role)]++
		if users[i].Role == model.RoleLecturer && !users[i].IsApproved {
			awaiting++
		}
	}
	claims, err := h.engine.History(ctx, repository.HistoryFilter{})
	if err != nil {
		return writeError(c, err)
	}
	statusCounts := map[string]int{}
	for i := range claims {
		statusCounts[string(claims[i].Status)]++
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users_by_role":     roleCounts,
		"awaiting_approval": awaiting,
		"claims_by_status":  statusCounts,
		"claims_total":      len(claims),
	})
}

// ListUsers returns every account.
func (h *HRHandler) ListUsers(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	users, err := h.dir.Users(ctx)
	if err != nil {
		return writeError(c, err)
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": views, "count": len(views)})
}

type createLecturerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
}

// CreateLecturer creates a pre-approved lecturer account with the
// rate HR chose.
func (h *HRHandler) CreateLecturer(c echo.Context) error {
	var req createLecturerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	u, err := h.dir.CreateLecturer(ctx, req.Name, req.Email, req.Password, req.HourlyRateCents)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newUserView(u))
}

type updateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
}

// UpdateUser edits name, email, role and rate of an account. Claims
// already submitted keep the identity they were submitted under.
func (h *HRHandler) UpdateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id: must be a UUID"})
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	u, err := h.dir.UpdateUser(ctx, id, req.Name, req.Email, model.Role(req.Role), req.HourlyRateCents)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}

// Approve activates a lecturer account. Approving twice is a no-op
// that still returns 200 with the current record.
func (h *HRHandler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id: must be a UUID"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	u, err := h.dir.Approve(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}

// Report returns the payment rows: approved claims grouped per
// lecturer, largest total first.
func (h *HRHandler) Report(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	rows, err := h.engine.Report(ctx)
	if err != nil {
		return writeError(c, err)
	}
	var totalCents int64
	for _, r := range rows {
		totalCents += r.TotalAmountCents
	}
	return c.JSON(http.StatusOK, echo.Map{"rows": rows, "grand_total_cents": totalCents})
}

// ReportCSV streams the payment report as a CSV download.
func (h *HRHandler) ReportCSV(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	rows, err := h.engine.Report(ctx)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="payment_report.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	_ = w.Write([]string{"lecturer_name", "lecturer_email", "total_hours", "total_amount_cents"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.LecturerName,
			r.LecturerEmail,
			strconv.FormatInt(r.TotalHours, 10),
			strconv.FormatInt(r.TotalAmountCents, 10),
		})
	}
	w.Flush()
	return w.Error()
}

// UsersCSV streams the account list as a CSV download.
func (h *HRHandler) UsersCSV(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	users, err := h.dir.Users(ctx)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="users.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	_ = w.Write([]string{"id", "name", "email", "role", "hourly_rate_cents", "is_approved"})
	for i := range users {
		u := &users[i]
		_ = w.Write([]string{
			u.ID.String(),
			u.Name,
			u.Email,
			string(u.Role),
			strconv.FormatInt(u.HourlyRateCents, 10),
			strconv.FormatBool(u.IsApproved),
		})
	}
	w.Flush()
	return w.Error()
}

// History returns claims filtered by status and submission date.
func (h *HRHandler) History(c echo.Context) error {
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
