package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// Handler serves the admin delivery log.
type Handler struct {
	repo *Repository
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/notifications.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, total, err := h.repo.List(c.Request.Context(), page, limit)
	if err != nil {
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, gin.H{
		"notifications": list,
		"pagination":    models.NewPagination(page, limit, total),
	})
}
