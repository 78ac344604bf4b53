package notify

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the notification history over HTTP.
type Handler struct {
	notifier *Notifier
}

func NewHandler(n *Notifier) *Handler {
	return &Handler{notifier: n}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.GET("/notifications/stats", h.Stats)
	api.GET("/notifications/:id", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	n, err := h.notifier.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) List(c echo.Context) error {
	recipient := c.QueryParam("recipient")
	if recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient query parameter is required")
	}
	list := h.notifier.ListByRecipient(recipient, 100)
	if list == nil {
		list = []*Notification{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.notifier.Stats())
}
