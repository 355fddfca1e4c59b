package tariff

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func TestHandlerCreateTariff(t *testing.T) {
	svc, _, code := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body, _ := json.Marshal(TariffRequest{
		ProviderID:    uuid.New(),
		ServiceCodeID: code.ID,
		Amount:        decimal.NewFromInt(2000),
		CopayKind:     "none",
		EffectiveFrom: date(2026, 1, 1),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tariffs", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var created Tariff
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("response must carry the assigned id")
	}
	if !created.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("amount = %s, want 2000", created.Amount)
	}
}

func TestHandlerResolveWithoutTariff(t *testing.T) {
	svc, _, code := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	target := "/api/v1/tariffs/resolve?provider_id=" + uuid.NewString() +
		"&service_code_id=" + code.ID.String() + "&as_of=2026-03-15"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.resolve(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if he.Code != http.StatusUnprocessableEntity {
		t.Errorf("code = %d, want 422 when no tariff covers the date", he.Code)
	}
}
