// internal/handlers/liveclass/liveclass_handler.go
package liveclass

import (
	"net/http"

	"lms-admin-service/internal/domain/liveclass"
	"lms-admin-service/internal/pkg/response"
	service "lms-admin-service/internal/service/liveclass"

	"github.com/gin-gonic/gin"
)

type LiveClassHandler struct {
	service *service.Service
}

func NewLiveClassHandler(service *service.Service) *LiveClassHandler {
	return &LiveClassHandler{service: service}
}

// ListUpcoming returns dashboard cards and starts polling their classes
func (h *LiveClassHandler) ListUpcoming(c *gin.Context) {
	cards, err := h.service.ListUpcoming(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load live classes", err)
		return
	}

	response.Success(c, http.StatusOK, "live classes retrieved", cards)
}

func (h *LiveClassHandler) Schedule(c *gin.Context) {
	var req liveclass.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid live class", err)
		return
	}

	card, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "failed to schedule live class", err)
		return
	}

	response.Success(c, http.StatusCreated, "live class scheduled", card)
}

// Edit accepts ?force=true to proceed when the status check could not reach the LMS
func (h *LiveClassHandler) Edit(c *gin.Context) {
	var opts liveclass.EditOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.ValidationError(c, "invalid edit options", err)
		return
	}

	var req liveclass.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid live class update", err)
		return
	}

	card, err := h.service.Edit(c.Request.Context(), c.Param("id"), req, opts)
	if err != nil {
		response.FromError(c, "failed to edit live class", err)
		return
	}

	response.Success(c, http.StatusOK, "live class updated", card)
}

// Delete needs ?confirm=true; ?force=true proceeds when the status check could not reach the LMS
func (h *LiveClassHandler) Delete(c *gin.Context) {
	var opts liveclass.DeleteOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.ValidationError(c, "invalid delete options", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), opts); err != nil {
		response.FromError(c, "failed to delete live class", err)
		return
	}

	response.Success(c, http.StatusOK, "live class deleted", nil)
}

func (h *LiveClassHandler) GoLive(c *gin.Context) {
	result, err := h.service.GoLive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to start live class", err)
		return
	}

	response.Success(c, http.StatusOK, "live class started", result)
}

func (h *LiveClassHandler) Status(c *gin.Context) {
	snap, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "live class status unavailable", err)
		return
	}

	response.Success(c, http.StatusOK, "live class status retrieved", snap)
}

func (h *LiveClassHandler) Watch(c *gin.Context) {
	card, err := h.service.Watch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to watch live class", err)
		return
	}

	response.Success(c, http.StatusOK, "live class watched", card)
}

func (h *LiveClassHandler) Unwatch(c *gin.Context) {
	removed := h.service.Unwatch(c.Param("id"))
	response.Success(c, http.StatusOK, "live class unwatched", gin.H{"removed": removed})
}

// ListTransitions returns recorded status changes
func (h *LiveClassHandler) ListTransitions(c *gin.Context) {
	var filters liveclass.TransitionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.service.ListTransitions(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list status transitions", err)
		return
	}

	response.Success(c, http.StatusOK, "status transitions retrieved", result)
}
