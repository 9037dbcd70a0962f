// internal/handlers/installment/installment_handler.go
package installment

import (
	"net/http"

	"lms-admin-service/internal/domain/installment"
	"lms-admin-service/internal/middleware"
	"lms-admin-service/internal/pkg/response"
	service "lms-admin-service/internal/service/installment"

	"github.com/gin-gonic/gin"
)

type InstallmentHandler struct {
	sync *service.Synchronizer
}

func NewInstallmentHandler(sync *service.Synchronizer) *InstallmentHandler {
	return &InstallmentHandler{sync: sync}
}

// OpenEditor builds the installment editor for a course's subscription
func (h *InstallmentHandler) OpenEditor(c *gin.Context) {
	var req installment.OpenEditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid subscription", err)
		return
	}

	identityID, _ := middleware.GetIdentityID(c)
	session, err := h.sync.Initialize(c.Request.Context(), c.Param("course_id"), req.Subscription, identityID)
	if err != nil {
		response.FromError(c, "failed to open installment editor", err)
		return
	}

	response.Success(c, http.StatusCreated, "installment editor opened", session)
}

func (h *InstallmentHandler) GetEditor(c *gin.Context) {
	session, err := h.sync.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.FromError(c, "installment editor not found", err)
		return
	}

	response.Success(c, http.StatusOK, "installment editor retrieved", session)
}

// UpdateRow changes the installment count of one validity
func (h *InstallmentHandler) UpdateRow(c *gin.Context) {
	var req installment.UpdateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "number_of_installments must be between 1 and 24", err)
		return
	}

	session, err := h.sync.UpdateRow(c.Request.Context(), c.Param("session_id"), c.Param("validity_id"), req.NumberOfInstallments)
	if err != nil {
		response.FromError(c, "failed to update installment row", err)
		return
	}

	response.Success(c, http.StatusOK, "installment row updated", session)
}

// Submit saves every row. A partial failure returns the per-row results with a 502.
func (h *InstallmentHandler) Submit(c *gin.Context) {
	identityID, _ := middleware.GetIdentityID(c)
	result, err := h.sync.Submit(c.Request.Context(), c.Param("session_id"), identityID)
	if err != nil {
		if result != nil {
			response.FromError(c, "some installment plans were not saved", err, result)
			return
		}
		response.FromError(c, "failed to submit installment plans", err)
		return
	}

	response.Success(c, http.StatusOK, "installment plans saved", result)
}

func (h *InstallmentHandler) Discard(c *gin.Context) {
	if err := h.sync.Discard(c.Request.Context(), c.Param("session_id")); err != nil {
		response.FromError(c, "failed to discard installment editor", err)
		return
	}

	response.Success(c, http.StatusOK, "installment editor discarded", nil)
}

// ListSubmissions returns the submit audit history
func (h *InstallmentHandler) ListSubmissions(c *gin.Context) {
	var filters installment.SubmissionListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.sync.ListSubmissions(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list installment submissions", err)
		return
	}

	response.Success(c, http.StatusOK, "installment submissions retrieved", result)
}
