package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
	"github.com/iliyamo/lecturer-claims/internal/service"
	"github.com/iliyamo/lecturer-claims/internal/storage"
	"github.com/iliyamo/lecturer-claims/internal/upload"
)

// ClaimHandler serves the lecturer-facing claim endpoints: submission
// with attachments, the personal dashboard and attachment download.
type ClaimHandler struct {
	engine *service.Engine
	dir    *service.Directory
	policy upload.Policy
	blobs  storage.BlobStore
}

// NewClaimHandler returns a ClaimHandler.
func NewClaimHandler(engine *service.Engine, dir *service.Directory, policy upload.Policy, blobs storage.BlobStore) *ClaimHandler {
	return &ClaimHandler{engine: engine, dir: dir, policy: policy, blobs: blobs}
}

// Create accepts a multipart claim submission: an hours_worked field,
// an optional notes field and any number of files under the
// "attachments" key. Zero-length files are skipped outright. Every
// remaining file is checked against the upload policy before any
// byte is stored; one offending file rejects the whole submission
// and the response lists every violation found.
func (h *ClaimHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	hours, err := strconv.Atoi(strings.TrimSpace(c.FormValue("hours_worked")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hours_worked: must be a whole number"})
	}
	notes := c.FormValue("notes")

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid multipart body"})
	}
	files := form.File["attachments"]

	// Policy pass over the full set first. Nothing is written until
	// every file is known to be acceptable.
	var violations []string
	kept := files[:0]
	for _, fh := range files {
		if fh.Size == 0 {
			continue
		}
		if ok, reason := h.policy.IsAllowed(fh.Filename, fh.Size); !ok {
			violations = append(violations, fh.Filename+": "+reason)
			continue
		}
		kept = append(kept, fh)
	}
	if len(violations) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attachments rejected", "details": violations})
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	lecturer, err := h.dir.User(ctx, actor.ID)
	if err != nil {
		return writeError(c, err)
	}

	attachments := make([]model.Attachment, 0, len(kept))
	for _, fh := range kept {
		src, err := fh.Open()
		if err != nil {
			return writeError(c, err)
		}
		name := storage.UniqueName(fh.Filename)
		saveErr := h.blobs.Save(name, src)
		src.Close()
		if saveErr != nil {
			return writeError(c, saveErr)
		}
		attachments = append(attachments, model.Attachment{
			FileName: fh.Filename,
			SavedAs:  name,
			Size:     fh.Size,
		})
	}

	claim, err := h.engine.Submit(ctx, lecturer, hours, notes, attachments)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newClaimView(claim))
}

// List returns the caller's own claims newest-first along with
// dashboard counters per status and the total value already approved.
func (h *ClaimHandler) List(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claims, err := h.engine.LecturerClaims(ctx, actor.Email)
	if err != nil {
		return writeError(c, err)
	}
	counts := map[string]int{}
	var approvedCents int64
	for i := range claims {
		counts[string(claims[i].Status)]++
		if claims[i].Status == model.StatusApproved {
			approvedCents += claims[i].TotalCents()
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"claims": newClaimViews(claims),
		"stats": echo.Map{
			"total":                len(claims),
			"pending":              counts[string(model.StatusPending)],
			"verified":             counts[string(model.StatusVerified)],
			"approved":             counts[string(model.StatusApproved)],
			"rejected":             counts[string(model.StatusRejected)],
			"approved_total_cents": approvedCents,
		},
	})
}

// Get returns one of the caller's claims. A claim submitted by anyone
// else comes back 404, not 403, so claim ids cannot be probed.
func (h *ClaimHandler) Get(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	claim, err := h.ownClaim(c, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newClaimView(claim))
}

// Download streams one attachment of the caller's own claim.
func (h *ClaimHandler) Download(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	claim, err := h.ownClaim(c, actor)
	if err != nil {
		return writeError(c, err)
	}
	return h.streamAttachment(c, claim, c.Param("name"))
}

// streamAttachment locates the named attachment on the claim and
// streams its bytes with the original filename in the disposition
// header.
func (h *ClaimHandler) streamAttachment(c echo.Context, claim *model.Claim, name string) error {
	var att *model.Attachment
	for i := range claim.Attachments {
		if claim.Attachments[i].SavedAs == name {
			att = &claim.Attachments[i]
			break
		}
	}
	if att == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	rc, err := h.blobs.Open(att.SavedAs)
	if err != nil {
		return writeError(c, err)
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+att.FileName+`"`)
	return c.Stream(http.StatusOK, "application/octet-stream", rc)
}

// DownloadForReview streams an attachment of any claim. It is mounted
// on the coordinator, manager and HR groups, where reviewers need the
// supporting documents of claims they did not submit; the ownership
// check of Download does not apply.
func (h *ClaimHandler) DownloadForReview(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id: must be a UUID"})
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claim, err := h.engine.Claim(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return h.streamAttachment(c, claim, c.Param("name"))
}

// ownClaim loads the claim named by the :id parameter and verifies it
// belongs to the acting lecturer.
func (h *ClaimHandler) ownClaim(c echo.Context, actor service.Actor) (*model.Claim, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, &service.ValidationError{Field: "id", Reason: "must be a UUID"}
	}
	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	claim, err := h.engine.Claim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(claim.LecturerEmail, actor.Email) {
		return nil, repository.ErrNotFound
	}
	return claim, nil
}
