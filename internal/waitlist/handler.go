package waitlist

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
	"github.com/gatherly/backend/pkg/storage"
)

// JoinRequest is the body for POST /events/:id/waitlist.
type JoinRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ModerateRequest is the body for PATCH /events/:id/waitlist/:entryId.
// Either the target status or an explicit action must be given.
type ModerateRequest struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

// Handler handles waitlist HTTP endpoints.
type Handler struct {
	svc    *Service
	s3     *storage.S3 // nil when export archiving is not configured
	logger *zap.Logger
}

// NewHandler creates a waitlist handler.
func NewHandler(svc *Service, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, s3: s3, logger: logger}
}

// Join handles POST /events/:id/waitlist. Public; a valid bearer token links
// the entry to the caller's account.
func (h *Handler) Join(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var userID *uuid.UUID
	if caller, ok := middleware.CallerFrom(c); ok {
		userID = &caller.ID
	}

	entry, err := h.svc.Join(c.Request.Context(), eventID, req.Email, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, entry)
}

// Moderate handles PATCH /events/:id/waitlist/:entryId.
func (h *Handler) Moderate(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		response.BadRequest(c, "invalid entry id")
		return
	}
	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var entry *models.WaitlistEntry
	switch {
	case req.Action != "":
		action := models.EntryAction(req.Action)
		switch action {
		case models.ActionConfirm, models.ActionCancel, models.ActionRevert, models.ActionRestore:
		default:
			response.BadRequest(c, "invalid action")
			return
		}
		entry, err = h.svc.Moderate(c.Request.Context(), caller, entryID, action)
	case req.Status != "":
		status := models.EntryStatus(req.Status)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		entry, err = h.svc.SetStatus(c.Request.Context(), caller, entryID, status)
	default:
		response.BadRequest(c, "status or action is required")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, entry)
}

// List handles GET /events/:id/waitlist for the event owner or an admin.
func (h *Handler) List(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	opts, ok := h.listOptions(c)
	if !ok {
		return
	}
	entries, pagination, err := h.svc.List(c.Request.Context(), caller, eventID, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"entries": entries, "pagination": pagination})
}

// Export handles GET /events/:id/waitlist/export. Streams CSV by default;
// with ?archive=true and S3 configured, uploads the document and returns a
// pre-signed download URL instead.
func (h *Handler) Export(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	opts, ok := h.listOptions(c)
	if !ok {
		return
	}
	entries, err := h.svc.Export(c.Request.Context(), caller, eventID, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("archive") == "true" && h.s3 != nil {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, entries); err != nil {
			h.logger.Error("export encode failed", zap.Error(err))
			response.Internal(c, "export failed")
			return
		}
		key := storage.ExportKey(eventID.String(), time.Now())
		if err := h.s3.UploadExport(c.Request.Context(), key, &buf); err != nil {
			h.logger.Error("export archive failed", zap.Error(err), zap.String("key", key))
			response.Internal(c, "export archive failed")
			return
		}
		url, err := h.s3.PresignDownload(c.Request.Context(), key)
		if err != nil {
			h.logger.Error("export presign failed", zap.Error(err), zap.String("key", key))
			response.Internal(c, "export archive failed")
			return
		}
		response.OK(c, gin.H{"download_url": url, "expires_in": h.s3.PresignExpire().String()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="waitlist-`+eventID.String()+`.csv"`)
	c.Status(200)
	if err := WriteCSV(c.Writer, entries); err != nil {
		h.logger.Error("export stream failed", zap.Error(err))
	}
}

// Recount handles POST /admin/events/:id/waitlist/recount.
func (h *Handler) Recount(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ev, err := h.svc.Recount(c.Request.Context(), caller, eventID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, ev)
}

func (h *Handler) listOptions(c *gin.Context) (ListOptions, bool) {
	opts := ListOptions{
		Search: c.Query("search"),
		SortBy: c.Query("sortBy"),
		Order:  models.ParseSortOrder(c.Query("sortOrder")),
		Page:   intQuery(c, "page", 1),
		Limit:  intQuery(c, "limit", 20),
	}
	if s := c.Query("status"); s != "" {
		status := models.EntryStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "invalid status filter")
			return ListOptions{}, false
		}
		opts.Status = &status
	}
	return opts, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var aj *AlreadyJoinedError
	var nj *NotJoinableError
	var tr *TransitionError
	switch {
	case errors.Is(err, ErrInvalidEmail):
		response.BadRequest(c, "invalid email address")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "event or entry not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "insufficient permissions for this event")
	case errors.As(err, &aj):
		response.Conflict(c, response.CodeAlreadyJoined, aj.Error(), aj.Entry)
	case errors.As(err, &tr):
		response.Conflict(c, response.CodeInvalidTransition, tr.Error(), tr.Entry)
	case errors.As(err, &nj):
		response.Unprocessable(c, response.CodeEventNotJoinable, nj.Error(), gin.H{"status": nj.Status})
	default:
		h.logger.Error("waitlist operation failed", zap.Error(err))
		response.Internal(c, "waitlist operation failed")
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
