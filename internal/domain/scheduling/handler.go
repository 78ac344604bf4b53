package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	generator *Generator
	booking   *Booking
}

func NewHandler(generator *Generator, booking *Booking) *Handler {
	return &Handler{generator: generator, booking: booking}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "registrar"))
	readGroup.GET("/physicians/:id/slots", h.ListSlots)
	readGroup.GET("/visits/:id", h.GetVisit)
	readGroup.GET("/physicians/:id/visits", h.ListVisitsByPhysician)
	readGroup.GET("/patients/:id/visits", h.ListVisitsByPatient)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "registrar"))
	writeGroup.POST("/physicians/:id/slots/generate", h.Generate)
	writeGroup.POST("/visits", h.CreateVisit)
	writeGroup.POST("/visits/:id/schedule", h.ScheduleVisit)
	writeGroup.POST("/visits/:id/start", h.StartVisit)
	writeGroup.POST("/visits/:id/complete", h.CompleteVisit)
	writeGroup.POST("/visits/:id/cancel", h.CancelVisit)
	writeGroup.POST("/visits/:id/reschedule", h.RescheduleVisit)
	writeGroup.POST("/visits/:id/diagnosis", h.AttachDiagnosis)
	writeGroup.PUT("/visits/:id/notes", h.UpdateNotes)
	writeGroup.DELETE("/visits/:id", h.DeleteVisit)
}

// httpError maps service errors onto status codes: contention is 409,
// missing rows are 404, everything else is a 400 with the message verbatim.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrSlotContended), errors.Is(err, ErrSlotExists):
		return echo.NewHTTPError(http.StatusConflict, ErrSlotContended.Error())
	case errors.Is(err, ErrVisitNotFound), errors.Is(err, ErrUnknownPhysician), errors.Is(err, ErrUnknownPatient):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

// -- Slot Handlers --

type generateRequest struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Mode          string `json:"mode"` // range|clear|month|next-week|alternating
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	MorningOnEven bool   `json:"morning_on_even"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func (h *Handler) Generate(c echo.Context) error {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	var created int
	switch req.Mode {
	case "", "range", "clear", "alternating":
		from, err := parseDate(req.From)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		to, err := parseDate(req.To)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		switch req.Mode {
		case "clear":
			created, err = h.generator.ClearAndRegenerate(ctx, physicianID, from, to)
		case "alternating":
			created, err = h.generator.GenerateAlternating(ctx, physicianID, from, to, req.MorningOnEven)
		default:
			created, err = h.generator.GenerateRange(ctx, physicianID, from, to)
		}
		if err != nil {
			return httpError(err)
		}
	case "month":
		if req.Month < 1 || req.Month > 12 {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be 1-12")
		}
		created, err = h.generator.GenerateMonth(ctx, physicianID, req.Year, time.Month(req.Month))
		if err != nil {
			return httpError(err)
		}
	case "next-week":
		created, err = h.generator.GenerateNextWeek(ctx, physicianID)
		if err != nil {
			return httpError(err)
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown generation mode")
	}

	return c.JSON(http.StatusOK, map[string]int{"created": created})
}

func (h *Handler) ListSlots(c echo.Context) error {
	physicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	slots, err := h.generator.ListRange(c.Request().Context(), physicianID, from, to)
	if err != nil {
		return httpError(err)
	}
	if slots == nil {
		slots = []*ScheduleSlot{}
	}
	return c.JSON(http.StatusOK, slots)
}

// -- Visit Handlers --

type createVisitRequest struct {
	PhysicianID uuid.UUID `json:"physician_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	Date        string    `json:"date"`
	Time        float64   `json:"time"`
	Notes       string    `json:"notes"`
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var req createVisitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	visit, err := h.booking.Create(c.Request().Context(), req.PhysicianID, req.PatientID, date, req.Time, req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, visit)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	visit, err := h.booking.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

func (h *Handler) visitAction(c echo.Context, action func(ctx echo.Context, id uuid.UUID) (*Visit, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	visit, err := action(c, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

func (h *Handler) ScheduleVisit(c echo.Context) error {
	return h.visitAction(c, func(c echo.Context, id uuid.UUID) (*Visit, error) {
		return h.booking.Schedule(c.Request().Context(), id)
	})
}

func (h *Handler) StartVisit(c echo.Context) error {
	return h.visitAction(c, func(c echo.Context, id uuid.UUID) (*Visit, error) {
		return h.booking.Start(c.Request().Context(), id)
	})
}

func (h *Handler) CompleteVisit(c echo.Context) error {
	return h.visitAction(c, func(c echo.Context, id uuid.UUID) (*Visit, error) {
		return h.booking.Complete(c.Request().Context(), id)
	})
}

func (h *Handler) CancelVisit(c echo.Context) error {
	return h.visitAction(c, func(c echo.Context, id uuid.UUID) (*Visit, error) {
		return h.booking.Cancel(c.Request().Context(), id)
	})
}

type rescheduleRequest struct {
	Date string  `json:"date"`
	Time float64 `json:"time"`
}

func (h *Handler) RescheduleVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	visit, err := h.booking.Reschedule(c.Request().Context(), id, date, req.Time)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

type attachDiagnosisRequest struct {
	DiagnosisID uuid.UUID `json:"diagnosis_id"`
}

func (h *Handler) AttachDiagnosis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req attachDiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	visit, err := h.booking.AttachDiagnosis(c.Request().Context(), id, req.DiagnosisID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) UpdateNotes(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	visit, err := h.booking.UpdateNotes(c.Request().Context(), id, req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, visit)
}

func (h *Handler) DeleteVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.booking.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListVisitsByPhysician(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.booking.ListByPhysician(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListVisitsByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.booking.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
