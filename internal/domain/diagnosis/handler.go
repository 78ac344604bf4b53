package diagnosis

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician"))
	readGroup.GET("/disease-categories", h.ListCategories)
	readGroup.GET("/diseases", h.ListDiseases)
	readGroup.GET("/diagnoses/:id", h.GetDiagnosis)
	readGroup.GET("/physicians/:id/diagnoses", h.ListByPhysician)
	readGroup.GET("/patients/:id/diagnoses", h.ListByPatient)
	readGroup.GET("/physicians/:id/review-queue", h.ListPendingReview)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/disease-categories", h.CreateCategory)
	adminGroup.DELETE("/disease-categories/:id", h.DeleteCategory)
	adminGroup.POST("/diseases", h.CreateDisease)
	adminGroup.DELETE("/diseases/:id", h.DeleteDisease)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician"))
	writeGroup.POST("/diagnoses", h.CreateDiagnosis)
	writeGroup.POST("/diagnoses/:id/submit", h.SubmitForReview)
	writeGroup.POST("/diagnoses/:id/review", h.Review)
	writeGroup.POST("/diagnoses/:id/finalize", h.Finalize)
	writeGroup.PUT("/diagnoses/:id/recommendations", h.UpdateRecommendations)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrDiagnosisNotFound), errors.Is(err, ErrDiseaseNotFound), errors.Is(err, ErrPhysicianNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAssignedMentor):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

// -- Category / Disease Handlers --

func (h *Handler) CreateCategory(c echo.Context) error {
	var cat DiseaseCategory
	if err := c.Bind(&cat); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCategory(c.Request().Context(), &cat); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) ListCategories(c echo.Context) error {
	items, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*DiseaseCategory{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCategory(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateDisease(c echo.Context) error {
	var d Disease
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDisease(c.Request().Context(), &d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDiseases(c echo.Context) error {
	if cat := c.QueryParam("category_id"); cat != "" {
		categoryID, err := uuid.Parse(cat)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid category_id")
		}
		items, err := h.svc.ListDiseasesByCategory(c.Request().Context(), categoryID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if items == nil {
			items = []*Disease{}
		}
		return c.JSON(http.StatusOK, items)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDiseases(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteDisease(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDisease(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Diagnosis Handlers --

type createDiagnosisRequest struct {
	PhysicianID     uuid.UUID `json:"physician_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DiseaseID       uuid.UUID `json:"disease_id"`
	Recommendations string    `json:"recommendations"`
}

func (h *Handler) CreateDiagnosis(c echo.Context) error {
	var req createDiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d := &Diagnosis{
		PhysicianID:     req.PhysicianID,
		PatientID:       req.PatientID,
		DiseaseID:       req.DiseaseID,
		Recommendations: req.Recommendations,
	}
	if err := h.svc.Create(c.Request().Context(), d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDiagnosis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SubmitForReview(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.SubmitForReview(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type reviewRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) Review(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reviewer := auth.UserIDFromContext(c.Request().Context())
	d, err := h.svc.Review(c.Request().Context(), id, reviewer, req.Comment)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Finalize(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type recommendationsRequest struct {
	Recommendations string `json:"recommendations"`
}

func (h *Handler) UpdateRecommendations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req recommendationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.UpdateRecommendations(c.Request().Context(), id, req.Recommendations)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListByPhysician(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPhysician(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPendingReview(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListPendingReview(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Diagnosis{}
	}
	return c.JSON(http.StatusOK, items)
}
