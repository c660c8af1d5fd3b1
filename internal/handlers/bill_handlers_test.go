package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotel_pms_backend/internal/models"
	"hotel_pms_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type fakeBillingService struct {
	unpaidOrders []models.Order
	bill         *models.Bill
	err          error
}

func (f *fakeBillingService) GetUnpaidOrders(location, locationType string) ([]models.Order, error) {
	return f.unpaidOrders, f.err
}

func (f *fakeBillingService) CreateBill(req services.CreateBillRequest, staffID int64) (*models.Bill, error) {
	return f.bill, f.err
}

func (f *fakeBillingService) GetBillByID(billID string) (*models.Bill, error) {
	return f.bill, f.err
}

type fakePaymentService struct {
	result *services.PaymentResult
	err    error
}

func (f *fakePaymentService) RecordPayment(billID string, req services.RecordPaymentRequest, staffID int64) (*services.PaymentResult, error) {
	return f.result, f.err
}

func (f *fakePaymentService) SweepStalePending() (int64, error) {
	return 0, nil
}

// asStaff stands in for AuthMiddleware in tests.
func asStaff(staffID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", staffID)
		c.Next()
	}
}

func billingRouter(bs services.BillingService, ps services.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	billHandler := NewBillHandler(bs, ps)
	checkoutHandler := NewCheckoutHandler(bs)
	authed := engine.Group("/api/v1", asStaff(7))
	{
		authed.GET("/checkout/unpaid", checkoutHandler.GetUnpaidOrders)
		authed.POST("/checkout/bills", checkoutHandler.CreateBill)
		authed.GET("/bills/:id", billHandler.GetBillByID)
		authed.POST("/bills/:id/payments", billHandler.RecordPayment)
	}
	return engine
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateBillConflictNamesBilledOrders(t *testing.T) {
	bs := &fakeBillingService{err: fmt.Errorf("%w: orders [3 4] are already billed", services.ErrConflict)}
	router := billingRouter(bs, &fakePaymentService{})

	rec := postJSON(router, "/api/v1/checkout/bills", services.CreateBillRequest{
		Location:     "12",
		LocationType: models.LocationTypeTable,
		OrderIDs:     []int64{3, 4},
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusConflict, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("[3 4]")) {
		t.Errorf("conflict response should name the billed orders, got %s", rec.Body.String())
	}
}

func TestCreateBillSuccess(t *testing.T) {
	bill := &models.Bill{ID: "bill-1", BillNumber: "B-T12-20250901-abcd", PaymentStatus: models.BillUnpaid}
	router := billingRouter(&fakeBillingService{bill: bill}, &fakePaymentService{})

	rec := postJSON(router, "/api/v1/checkout/bills", services.CreateBillRequest{
		Location:     "12",
		LocationType: models.LocationTypeTable,
		OrderIDs:     []int64{1, 2},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestRecordCashPaymentReturnsChange(t *testing.T) {
	result := &services.PaymentResult{
		Payment:    &models.Payment{ID: "pay-1", Status: models.PaymentCompleted},
		BillStatus: models.BillPaid,
		ChangeDue:  decimal.RequireFromString("14.50"),
	}
	router := billingRouter(&fakeBillingService{}, &fakePaymentService{result: result})

	rec := postJSON(router, "/api/v1/bills/bill-1/payments", services.RecordPaymentRequest{
		Amount: decimal.RequireFromString("200.00"),
		Method: models.MethodCash,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var got services.PaymentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !got.ChangeDue.Equal(decimal.RequireFromString("14.50")) {
		t.Errorf("change_due = %s, want 14.50", got.ChangeDue)
	}
	if got.BillStatus != models.BillPaid {
		t.Errorf("bill_status = %s, want %s", got.BillStatus, models.BillPaid)
	}
}

func TestRecordMobileMoneyPaymentIsAccepted(t *testing.T) {
	result := &services.PaymentResult{
		Payment:    &models.Payment{ID: "pay-2", Status: models.PaymentPending},
		BillStatus: models.BillUnpaid,
	}
	router := billingRouter(&fakeBillingService{}, &fakePaymentService{result: result})

	phone := "254700000001"
	rec := postJSON(router, "/api/v1/bills/bill-1/payments", services.RecordPaymentRequest{
		Amount: decimal.RequireFromString("100.00"),
		Method: models.MethodMobileMoney,
		Phone:  &phone,
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
}

func TestRecordPaymentOnPaidBillConflicts(t *testing.T) {
	ps := &fakePaymentService{err: fmt.Errorf("%w: bill B-T12-x is already paid", services.ErrConflict)}
	router := billingRouter(&fakeBillingService{}, ps)

	rec := postJSON(router, "/api/v1/bills/bill-1/payments", services.RecordPaymentRequest{
		Amount: decimal.RequireFromString("10.00"),
		Method: models.MethodCash,
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestGetBillByIDNotFound(t *testing.T) {
	bs := &fakeBillingService{err: fmt.Errorf("%w: bill nope", services.ErrNotFound)}
	router := billingRouter(bs, &fakePaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bills/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetUnpaidOrdersEmptyListNotNull(t *testing.T) {
	router := billingRouter(&fakeBillingService{}, &fakePaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/unpaid?location=12&location_type=table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"data":[]`)) {
		t.Errorf("empty result should serialize as [], got %s", rec.Body.String())
	}
}
