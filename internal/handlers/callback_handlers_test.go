package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel_pms_backend/internal/provider"
	"hotel_pms_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type fakeCallbackService struct {
	result *services.CallbackResult
	err    error
	calls  int
}

func (f *fakeCallbackService) HandleMobileMoney(req services.MobileMoneyCallback) (*services.CallbackResult, error) {
	f.calls++
	return f.result, f.err
}

const testCallbackSecret = "test-callback-secret"

func callbackRouter(svc services.CallbackService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewCallbackHandler(svc, testCallbackSecret)
	engine.POST("/api/v1/payments/callback/mobile-money", handler.MobileMoneyCallback)
	return engine
}

func signedCallbackRequest(t *testing.T, body []byte, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/mobile-money", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(provider.SignatureHeader, provider.Sign(secret, body))
	return req
}

func TestMobileMoneyCallbackRejectsBadSignature(t *testing.T) {
	svc := &fakeCallbackService{}
	router := callbackRouter(svc)

	body := []byte(`{"provider_ref":"MM-1","bill_number":"B-T12-x","amount":"100.00","result_code":0}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedCallbackRequest(t, body, "wrong-secret"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if svc.calls != 0 {
		t.Error("service must not be called for an unauthenticated callback")
	}
}

func TestMobileMoneyCallbackMissingSignature(t *testing.T) {
	svc := &fakeCallbackService{}
	router := callbackRouter(svc)

	body := []byte(`{"provider_ref":"MM-1","bill_number":"B-T12-x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/mobile-money", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMobileMoneyCallbackReplayIsIdempotent(t *testing.T) {
	svc := &fakeCallbackService{result: &services.CallbackResult{Replayed: true, PaymentID: "pay-1"}}
	router := callbackRouter(svc)

	body := []byte(`{"provider_ref":"MM-1","bill_number":"B-T12-x","amount":"100.00","result_code":0}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedCallbackRequest(t, body, testCallbackSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result services.CallbackResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !result.Replayed {
		t.Error("replayed = false, want true")
	}
}

func TestMobileMoneyCallbackUnknownBill(t *testing.T) {
	svc := &fakeCallbackService{err: fmt.Errorf("%w: no bill with number B-T99-x", services.ErrNotFound)}
	router := callbackRouter(svc)

	body := []byte(`{"provider_ref":"MM-2","bill_number":"B-T99-x","amount":"100.00","result_code":0}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedCallbackRequest(t, body, testCallbackSecret))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMobileMoneyCallbackMissingFields(t *testing.T) {
	svc := &fakeCallbackService{}
	router := callbackRouter(svc)

	body := []byte(`{"amount":"100.00","result_code":0}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedCallbackRequest(t, body, testCallbackSecret))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if svc.calls != 0 {
		t.Error("service must not be called for an incomplete payload")
	}
}
