package eligibility

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/eligibility/check", h.check)

	enrollments := api.Group("/enrollments")
	enrollments.POST("", h.enroll, auth.RequireRole("billing"))
	enrollments.GET("/:id", h.getEnrollment)
	enrollments.POST("/:id/terminate", h.terminate, auth.RequireRole("billing"))

	api.GET("/patients/:id/enrollments", h.listEnrollments)
}

func httpError(err error) error {
	return echo.NewHTTPError(errs.HTTPStatus(err), err.Error())
}

// check answers "is this patient covered, optionally for this service".
// Ineligibility is a 200 with eligible=false, not an error.
func (h *Handler) check(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var serviceCodeID *uuid.UUID
	if raw := c.QueryParam("service_code_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid service_code_id")
		}
		serviceCodeID = &id
	}
	result, err := h.svc.Check(c.Request().Context(), patientID, serviceCodeID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type EnrollRequest struct {
	PatientID    uuid.UUID  `json:"patient_id"`
	PackageID    uuid.UUID  `json:"package_id"`
	MemberNumber *string    `json:"member_number"`
	EnrolledFrom time.Time  `json:"enrolled_from"`
	EnrolledTo   *time.Time `json:"enrolled_to"`
}

func (h *Handler) enroll(c echo.Context) error {
	var req EnrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e := &Enrollment{
		PatientID:    req.PatientID,
		PackageID:    req.PackageID,
		MemberNumber: req.MemberNumber,
		EnrolledFrom: req.EnrolledFrom,
		EnrolledTo:   req.EnrolledTo,
	}
	if err := h.svc.Enroll(c.Request().Context(), e); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) getEnrollment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEnrollment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

type TerminateRequest struct {
	EnrolledTo time.Time `json:"enrolled_to"`
}

func (h *Handler) terminate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req TerminateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.Terminate(c.Request().Context(), id, req.EnrolledTo); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listEnrollments(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListEnrollments(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
