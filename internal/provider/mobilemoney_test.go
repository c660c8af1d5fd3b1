package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotel_pms_backend/internal/config"

	"github.com/shopspring/decimal"
)

func testClient(baseURL string, maxRetries uint64) *Client {
	return NewClient(config.ProviderConfig{
		BaseURL:     baseURL,
		PushTimeout: 2 * time.Second,
		MaxRetries:  maxRetries,
	})
}

func TestInitiatePushSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transaction_ref":"MM-123456","message":"accepted"}`))
	}))
	defer server.Close()

	ref, err := testClient(server.URL, 0).InitiatePush(context.Background(), "254700000001", decimal.NewFromInt(150), "B-T12-20250901-abcd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "MM-123456" {
		t.Errorf("providerRef = %s, want MM-123456", ref)
	}
	if gotPath != "/v1/stkpush" {
		t.Errorf("path = %s, want /v1/stkpush", gotPath)
	}
}

func TestInitiatePushRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"transaction_ref":"MM-RETRY"}`))
	}))
	defer server.Close()

	ref, err := testClient(server.URL, 2).InitiatePush(context.Background(), "254700000001", decimal.NewFromInt(10), "B-T1-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "MM-RETRY" {
		t.Errorf("providerRef = %s, want MM-RETRY", ref)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestInitiatePushRejectionIsPermanent(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL, 3).InitiatePush(context.Background(), "bad-phone", decimal.NewFromInt(10), "B-T1-x")
	if !errors.Is(err, ErrPushRejected) {
		t.Fatalf("expected ErrPushRejected, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not be retried)", attempts)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "callback-secret"
	body := []byte(`{"provider_ref":"MM-1","bill_number":"B-T1-x","amount":"100.00","result_code":0}`)

	if !VerifySignature(secret, body, Sign(secret, body)) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(secret, body, Sign("other-secret", body)) {
		t.Error("signature from wrong secret accepted")
	}
	if VerifySignature(secret, append(body, ' '), Sign(secret, body)) {
		t.Error("signature over different body accepted")
	}
	if VerifySignature(secret, body, "") {
		t.Error("empty signature accepted")
	}
}
