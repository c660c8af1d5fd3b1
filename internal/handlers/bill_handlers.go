package handlers

import (
	"net/http"

	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/services"
	"hotel_pms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// BillHandler holds the billing and payment services.
type BillHandler struct {
	billingService services.BillingService
	paymentService services.PaymentService
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(bs services.BillingService, ps services.PaymentService) *BillHandler {
	return &BillHandler{billingService: bs, paymentService: ps}
}

// GetBillByID returns a bill with its constituent orders and payment history.
func (h *BillHandler) GetBillByID(c *gin.Context) {
	bill, err := h.billingService.GetBillByID(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "GetBillByID")
		return
	}
	c.JSON(http.StatusOK, bill)
}

// RecordPayment applies a payment to a bill.
func (h *BillHandler) RecordPayment(c *gin.Context) {
	var req services.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	staffID, ok := currentStaffID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	result, err := h.paymentService.RecordPayment(c.Param("id"), req, staffID)
	if err != nil {
		respondServiceError(c, err, "RecordPayment")
		return
	}

	status := http.StatusCreated
	if result.Payment.Status == models.PaymentPending {
		// Mobile money settles asynchronously through the provider callback.
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}
