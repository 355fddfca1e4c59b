package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func TestHandlerCreateReturnsAdjudicatedClaim(t *testing.T) {
	f := newFixture(false)
	h := NewHandler(f.svc)
	e := echo.New()

	body, _ := json.Marshal(f.createInput(1))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var claim Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim.Status != StatusPending {
		t.Errorf("status = %s, want pending", claim.Status)
	}
	if !claim.ClaimAmount.Equal(decimal.NewFromInt(2700)) {
		t.Errorf("claim amount = %s, want 2700", claim.ClaimAmount)
	}
	if claim.ClaimNumber == "" {
		t.Error("response must carry the claim number")
	}
}

func TestHandlerGetUnknownClaim(t *testing.T) {
	f := newFixture(false)
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/claims/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.get(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", he.Code)
	}
}

func TestHandlerPayPendingConflict(t *testing.T) {
	f := newFixture(false)
	h := NewHandler(f.svc)
	e := echo.New()

	claim, err := f.svc.Create(context.Background(), f.createInput(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims/"+claim.ID.String()+"/pay", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	payErr := h.markPaid(c)
	var he *echo.HTTPError
	if !errors.As(payErr, &he) {
		t.Fatalf("expected HTTP error, got %v", payErr)
	}
	if he.Code != http.StatusConflict {
		t.Errorf("code = %d, want 409 for pending → paid", he.Code)
	}
}
