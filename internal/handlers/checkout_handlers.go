package handlers

import (
	"net/http"

	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/services"
	"hotel_pms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler holds the billing service.
type CheckoutHandler struct {
	billingService services.BillingService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(bs services.BillingService) *CheckoutHandler {
	return &CheckoutHandler{billingService: bs}
}

// GetUnpaidOrders lists the unbilled, billable orders at a location so staff
// can pick what goes onto a bill.
func (h *CheckoutHandler) GetUnpaidOrders(c *gin.Context) {
	location := c.Query("location")
	locationType := c.Query("location_type")

	orders, err := h.billingService.GetUnpaidOrders(location, locationType)
	if err != nil {
		respondServiceError(c, err, "GetUnpaidOrders")
		return
	}

	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

// CreateBill consolidates the selected orders into a bill.
func (h *CheckoutHandler) CreateBill(c *gin.Context) {
	var req services.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	staffID, ok := currentStaffID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return
	}

	bill, err := h.billingService.CreateBill(req, staffID)
	if err != nil {
		respondServiceError(c, err, "CreateBill")
		return
	}
	c.JSON(http.StatusCreated, bill)
}
