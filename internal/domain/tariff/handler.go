package tariff

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	tariffs := api.Group("/tariffs")
	tariffs.GET("/resolve", h.resolve)
	tariffs.GET("/:id", h.get)
	tariffs.POST("", h.create, auth.RequireRole("billing_admin"))
	tariffs.PUT("/:id", h.update, auth.RequireRole("billing_admin"))
	tariffs.DELETE("/:id", h.delete, auth.RequireRole("billing_admin"))

	api.GET("/providers/:id/tariffs", h.listByProvider)
}

func httpError(err error) error {
	return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
}

type TariffRequest struct {
	ProviderID      uuid.UUID        `json:"provider_id"`
	ServiceCodeID   uuid.UUID        `json:"service_code_id"`
	Amount          decimal.Decimal  `json:"amount"`
	CopayKind       string           `json:"copay_kind"`
	CopayPercentage *decimal.Decimal `json:"copay_percentage"`
	CopayAmount     *decimal.Decimal `json:"copay_amount"`
	EffectiveFrom   time.Time        `json:"effective_from"`
	EffectiveTo     *time.Time       `json:"effective_to"`
}

func (h *Handler) create(c echo.Context) error {
	var req TariffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	copay, err := registry.ParseCopay(req.CopayKind, req.CopayPercentage, req.CopayAmount)
	if err != nil {
		return httpError(err)
	}
	t := &Tariff{
		ProviderID:    req.ProviderID,
		ServiceCodeID: req.ServiceCodeID,
		Amount:        req.Amount,
		Copay:         copay,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	}
	if err := h.svc.Create(c.Request().Context(), t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req TariffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	copay, err := registry.ParseCopay(req.CopayKind, req.CopayPercentage, req.CopayAmount)
	if err != nil {
		return httpError(err)
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	t.Amount = req.Amount
	t.Copay = copay
	t.EffectiveFrom = req.EffectiveFrom
	t.EffectiveTo = req.EffectiveTo
	if err := h.svc.Update(c.Request().Context(), t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listByProvider(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByProvider(c.Request().Context(), providerID, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

// resolve answers "what does this service cost under this provider on
// this date". With fallback=true the base tariff is used when no
// negotiated tariff covers the date.
func (h *Handler) resolve(c echo.Context) error {
	providerID, err := uuid.Parse(c.QueryParam("provider_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
	}
	serviceCodeID, err := uuid.Parse(c.QueryParam("service_code_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service_code_id")
	}
	asOf := time.Now().UTC()
	if raw := c.QueryParam("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		}
	}

	ctx := c.Request().Context()
	var r *Resolved
	if c.QueryParam("fallback") == "true" {
		r, err = h.svc.ResolveWithFallback(ctx, providerID, serviceCodeID, asOf)
	} else {
		r, err = h.svc.Resolve(ctx, providerID, serviceCodeID, asOf)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}
