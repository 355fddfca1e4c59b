package preauth

import (
	"net/http"
	"time"

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
	preauths := api.Group("/preauthorizations")
	preauths.POST("", h.create, auth.RequireRole("clinical", "billing"))
	preauths.GET("/:id", h.get)
	preauths.POST("/:id/approve", h.approve, auth.RequireRole("billing"))
	preauths.POST("/:id/reject", h.reject, auth.RequireRole("billing"))

	api.GET("/patients/:id/preauthorizations", h.listByPatient)
}

func httpError(err error) error {
	return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
}

type CreateRequest struct {
	PatientID       uuid.UUID        `json:"patient_id"`
	ProviderID      uuid.UUID        `json:"provider_id"`
	ServiceCodeID   *uuid.UUID       `json:"service_code_id"`
	Diagnosis       string           `json:"diagnosis"`
	RequestedAmount *decimal.Decimal `json:"requested_amount"`
}

func (h *Handler) create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := &PreAuthorization{
		PatientID:       req.PatientID,
		ProviderID:      req.ProviderID,
		ServiceCodeID:   req.ServiceCodeID,
		Diagnosis:       req.Diagnosis,
		RequestedAmount: req.RequestedAmount,
		RequestedBy:     auth.UserIDFromContext(c.Request().Context()),
	}
	if err := h.svc.Create(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type ApproveRequest struct {
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
	ExpiryDate     *time.Time      `json:"expiry_date"`
}

func (h *Handler) approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req ApproveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Approve(c.Request().Context(), id, req.ApprovedAmount, req.ExpiryDate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Reject(c.Request().Context(), id, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) listByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
