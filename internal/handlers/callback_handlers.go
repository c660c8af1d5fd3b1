package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"hotel_pms_backend/internal/provider"
	"hotel_pms_backend/internal/services"
	"hotel_pms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CallbackHandler receives asynchronous payment notifications from the
// mobile-money provider.
type CallbackHandler struct {
	callbackService services.CallbackService
	callbackSecret  string
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(cs services.CallbackService, callbackSecret string) *CallbackHandler {
	return &CallbackHandler{callbackService: cs, callbackSecret: callbackSecret}
}

// MobileMoneyCallback verifies the provider signature over the raw body before
// anything else touches the payload, then applies the notification.
func (h *CallbackHandler) MobileMoneyCallback(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Failed to read request body.", err.Error()))
		return
	}

	signature := c.GetHeader(provider.SignatureHeader)
	if !provider.VerifySignature(h.callbackSecret, body, signature) {
		utils.LogError(errors.New("invalid callback signature"), "MobileMoneyCallback: rejected request from "+c.ClientIP())
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid callback signature.", ""))
		return
	}

	var req services.MobileMoneyCallback
	if err := json.Unmarshal(body, &req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid callback payload: "+err.Error(), err.Error()))
		return
	}
	if req.ProviderRef == "" || req.BillNumber == "" {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Callback payload is missing provider_ref or bill_number.", ""))
		return
	}

	result, err := h.callbackService.HandleMobileMoney(req)
	if err != nil {
		respondServiceError(c, err, "MobileMoneyCallback")
		return
	}
	c.JSON(http.StatusOK, result)
}
