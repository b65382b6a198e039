package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"taskpulse-api/directory"
	"taskpulse-api/notify"
	"taskpulse-api/types"

	"github.com/gin-gonic/gin"
)

// NotificationsHandler serves the notification read/query contract: paged,
// sortable, searchable listing plus the read-state toggles.
type NotificationsHandler struct {
	store      notify.Store
	directory  *directory.Service
	maxPerPage int
}

func NewNotificationsHandler(store notify.Store, maxPerPage int) *NotificationsHandler {
	return &NotificationsHandler{store: store, maxPerPage: maxPerPage}
}

// WithDirectory enables actor-name enrichment on listings. Optional: without
// it listings simply carry no actor names.
func (h *NotificationsHandler) WithDirectory(d *directory.Service) *NotificationsHandler {
	h.directory = d
	return h
}

// List handles GET /notifications?page&perPage&sort=newest|oldest&search=.
func (h *NotificationsHandler) List(c *gin.Context) {
	userID := c.GetInt("userId")

	page, perPage, err := types.ParsePagination(c, h.maxPerPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}

	sortOrder := notify.SortNewest
	switch c.DefaultQuery("sort", string(notify.SortNewest)) {
	case string(notify.SortNewest):
	case string(notify.SortOldest):
		sortOrder = notify.SortOldest
	default:
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "sort must be 'newest' or 'oldest'"))
		return
	}

	params := notify.ListParams{
		Page:    page,
		PerPage: perPage,
		Sort:    sortOrder,
		Search:  c.Query("search"),
	}

	items, total, err := h.store.List(c.Request.Context(), userID, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "Failed to list notifications"))
		return
	}

	h.enrichActors(c, items)

	c.JSON(http.StatusOK, types.NewSuccessResponse(types.NewPagedResponse(items, page, perPage, total)))
}

// enrichActors fills ActorName from the directory cache. Lookup failures
// leave names empty; listings never fail because the directory is down.
func (h *NotificationsHandler) enrichActors(c *gin.Context, items []notify.Notification) {
	if h.directory == nil || len(items) == 0 {
		return
	}
	seen := make(map[int]struct{}, len(items))
	ids := make([]int, 0, len(items))
	for _, n := range items {
		if _, ok := seen[n.ActorID]; !ok && n.ActorID > 0 {
			seen[n.ActorID] = struct{}{}
			ids = append(ids, n.ActorID)
		}
	}
	users := h.directory.Users(c.Request.Context(), ids)
	for i := range items {
		if u, ok := users[items[i].ActorID]; ok {
			items[i].ActorName = u.Name
		}
	}
}

// MarkRead handles POST /notifications/:id/read. Idempotent; only the
// recipient may mark their own notification.
func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	userID := c.GetInt("userId")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "id must be a positive integer"))
		return
	}

	switch err := h.store.MarkRead(c.Request.Context(), id, userID); {
	case errors.Is(err, notify.ErrNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Notification not found"))
	case errors.Is(err, notify.ErrNotOwned):
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Notification does not belong to you"))
	case err != nil:
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "Failed to mark notification read"))
	default:
		c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Notification marked read"}))
	}
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetInt("userId")
	if err := h.store.MarkAllRead(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "Failed to mark notifications read"))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "All notifications marked read"}))
}
