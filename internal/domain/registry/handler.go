package registry

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	providers := api.Group("/providers")
	providers.GET("", h.listProviders)
	providers.GET("/:id", h.getProvider)
	providers.POST("", h.createProvider, auth.RequireRole("billing_admin"))
	providers.PUT("/:id", h.updateProvider, auth.RequireRole("billing_admin"))
	providers.DELETE("/:id", h.deleteProvider, auth.RequireRole("billing_admin"))
	providers.GET("/:id/packages", h.listPackages)

	packages := api.Group("/packages")
	packages.GET("/:id", h.getPackage)
	packages.POST("", h.createPackage, auth.RequireRole("billing_admin"))
	packages.PUT("/:id", h.updatePackage, auth.RequireRole("billing_admin"))
	packages.DELETE("/:id", h.deletePackage, auth.RequireRole("billing_admin"))

	codes := api.Group("/service-codes")
	codes.GET("", h.listServiceCodes)
	codes.GET("/:id", h.getServiceCode)
	codes.POST("", h.createServiceCode, auth.RequireRole("billing_admin"))
	codes.PUT("/:id", h.updateServiceCode, auth.RequireRole("billing_admin"))
	codes.DELETE("/:id", h.deleteServiceCode, auth.RequireRole("billing_admin"))
}

func httpError(err error) error {
	return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// =========== Providers ===========

type ProviderRequest struct {
	Name            string  `json:"name"`
	Code            string  `json:"code"`
	ContactEmail    *string `json:"contact_email"`
	ContactPhone    *string `json:"contact_phone"`
	AccreditationNo *string `json:"accreditation_no"`
	Active          *bool   `json:"active"`
}

func (h *Handler) createProvider(c echo.Context) error {
	var req ProviderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := &Provider{
		Name:            req.Name,
		Code:            req.Code,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		AccreditationNo: req.AccreditationNo,
	}
	if err := h.svc.CreateProvider(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) getProvider(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProvider(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) updateProvider(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req ProviderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.GetProvider(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	p.Name = req.Name
	p.ContactEmail = req.ContactEmail
	p.ContactPhone = req.ContactPhone
	p.AccreditationNo = req.AccreditationNo
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := h.svc.UpdateProvider(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteProvider(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProvider(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listProviders(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListProviders(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

// =========== Packages ===========

type PackageRequest struct {
	ProviderID      uuid.UUID        `json:"provider_id"`
	Name            string           `json:"name"`
	Description     *string          `json:"description"`
	AnnualLimit     *decimal.Decimal `json:"annual_limit"`
	CopayKind       string           `json:"copay_kind"`
	CopayPercentage *decimal.Decimal `json:"copay_percentage"`
	CopayAmount     *decimal.Decimal `json:"copay_amount"`
	CoveredCodes    []uuid.UUID      `json:"covered_codes"`
	ExcludedCodes   []uuid.UUID      `json:"excluded_codes"`
}

func (h *Handler) createPackage(c echo.Context) error {
	var req PackageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	copay, err := ParseCopay(req.CopayKind, req.CopayPercentage, req.CopayAmount)
	if err != nil {
		return httpError(err)
	}
	p := &Package{
		ProviderID:    req.ProviderID,
		Name:          req.Name,
		Description:   req.Description,
		AnnualLimit:   req.AnnualLimit,
		Copay:         copay,
		CoveredCodes:  req.CoveredCodes,
		ExcludedCodes: req.ExcludedCodes,
	}
	if err := h.svc.CreatePackage(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) getPackage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPackage(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) updatePackage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req PackageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	copay, err := ParseCopay(req.CopayKind, req.CopayPercentage, req.CopayAmount)
	if err != nil {
		return httpError(err)
	}
	p, err := h.svc.GetPackage(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	p.Name = req.Name
	p.Description = req.Description
	p.AnnualLimit = req.AnnualLimit
	p.Copay = copay
	p.CoveredCodes = req.CoveredCodes
	p.ExcludedCodes = req.ExcludedCodes
	if err := h.svc.UpdatePackage(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) deletePackage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePackage(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listPackages(c echo.Context) error {
	providerID, err := pathID(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListPackages(c.Request().Context(), providerID, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

// =========== Service codes ===========

type ServiceCodeRequest struct {
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	BaseTariff      decimal.Decimal `json:"base_tariff"`
	PreauthRequired bool            `json:"preauth_required"`
}

func (h *Handler) createServiceCode(c echo.Context) error {
	var req ServiceCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sc := &ServiceCode{
		Code:            req.Code,
		Description:     req.Description,
		Category:        ServiceCategory(req.Category),
		BaseTariff:      req.BaseTariff,
		PreauthRequired: req.PreauthRequired,
	}
	if err := h.svc.CreateServiceCode(c.Request().Context(), sc); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *Handler) getServiceCode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sc, err := h.svc.GetServiceCode(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) updateServiceCode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req ServiceCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sc, err := h.svc.GetServiceCode(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	sc.Description = req.Description
	sc.Category = ServiceCategory(req.Category)
	sc.BaseTariff = req.BaseTariff
	sc.PreauthRequired = req.PreauthRequired
	if err := h.svc.UpdateServiceCode(c.Request().Context(), sc); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) deleteServiceCode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteServiceCode(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listServiceCodes(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListServiceCodes(c.Request().Context(), c.QueryParam("category"), p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
