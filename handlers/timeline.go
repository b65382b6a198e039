package handlers

import (
	"net/http"
	"strconv"

	"taskpulse-api/timeline"
	"taskpulse-api/types"

	"github.com/gin-gonic/gin"
)

// TimelineHandler serves the merged audit/comment history of a task.
type TimelineHandler struct {
	builder *timeline.Builder
}

func NewTimelineHandler(builder *timeline.Builder) *TimelineHandler {
	return &TimelineHandler{builder: builder}
}

// Get handles GET /tasks/:taskId/timeline.
func (h *TimelineHandler) Get(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Param("taskId"))
	if err != nil || taskID < 1 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "taskId must be a positive integer"))
		return
	}

	items, err := h.builder.Build(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "Failed to build timeline"))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(items))
}
