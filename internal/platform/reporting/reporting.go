// Package reporting exposes aggregate statistics over visits and diagnoses.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "visit-volume-by-state",
		Name:        "Visit Volume by State",
		Description: "Number of visits grouped by workflow state",
		SQL:         `SELECT state, COUNT(*) AS total FROM visit GROUP BY state ORDER BY total DESC`,
	},
	{
		ID:          "slot-utilization",
		Name:        "Slot Utilization",
		Description: "Per physician, generated slots versus booked visits",
		SQL: `SELECT p.id AS physician_id, p.first_name || ' ' || p.last_name AS physician_name,
       COUNT(DISTINCT s.id) AS slots,
       COUNT(DISTINCT v.id) FILTER (WHERE v.state <> 'cancelled') AS booked
  FROM physician p
  LEFT JOIN schedule_slot s ON s.physician_id = p.id
  LEFT JOIN visit v ON v.physician_id = p.id AND v.visit_date = s.date AND v.visit_time = s.slot_time
 GROUP BY p.id, p.first_name, p.last_name
 ORDER BY physician_name`,
	},
	{
		ID:          "diagnosis-review-backlog",
		Name:        "Diagnosis Review Backlog",
		Description: "Diagnoses awaiting mentor review, grouped by mentor",
		SQL: `SELECT m.id AS mentor_id, m.first_name || ' ' || m.last_name AS mentor_name, COUNT(*) AS pending
  FROM diagnosis d
  JOIN physician i ON i.id = d.physician_id
  JOIN physician m ON m.id = i.mentor_id
 WHERE d.state = 'pending_review'
 GROUP BY m.id, m.first_name, m.last_name
 ORDER BY pending DESC`,
	},
}

// DiseaseStat is one row of the per-physician disease report.
type DiseaseStat struct {
	PhysicianID   string `json:"physician_id"`
	PhysicianName string `json:"physician_name"`
	DiseaseID     string `json:"disease_id"`
	DiseaseName   string `json:"disease_name"`
	Count         int64  `json:"count"`
}

// DiseaseReport is the payload returned by the disease statistics report.
type DiseaseReport struct {
	PhysicianIDs []string      `json:"physician_ids"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	GeneratedAt  time.Time     `json:"generated_at"`
	DiseaseStats []DiseaseStat `json:"disease_stats"`
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole("admin", "physician"))
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
	g.POST("/disease-stats", h.DiseaseStats)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	})
}

type diseaseStatsRequest struct {
	PhysicianIDs []string `json:"physician_ids"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
}

// DiseaseStats returns diagnosis counts per disease per physician over a
// date range. An empty physician list means all physicians.
func (h *Handler) DiseaseStats(c echo.Context) error {
	var req diseaseStatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must not precede start_date")
	}

	query := `SELECT p.id, p.first_name || ' ' || p.last_name AS physician_name, ds.id, ds.name, COUNT(*) AS total
  FROM diagnosis d
  JOIN physician p ON p.id = d.physician_id
  JOIN disease ds ON ds.id = d.disease_id
 WHERE d.diagnosed_at >= $1 AND d.diagnosed_at < $2::date + 1
   AND (cardinality($3::uuid[]) = 0 OR d.physician_id = ANY($3::uuid[]))
 GROUP BY p.id, p.first_name, p.last_name, ds.id, ds.name
 ORDER BY physician_name, total DESC`

	ids := req.PhysicianIDs
	if ids == nil {
		ids = []string{}
	}

	rows, err := h.pool.Query(c.Request().Context(), query, start, end, ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}
	defer rows.Close()

	stats := []DiseaseStat{}
	for rows.Next() {
		var s DiseaseStat
		if err := rows.Scan(&s.PhysicianID, &s.PhysicianName, &s.DiseaseID, &s.DiseaseName, &s.Count); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("scan failed: %v", err))
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, DiseaseReport{
		PhysicianIDs: ids,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		GeneratedAt:  time.Now().UTC(),
		DiseaseStats: stats,
	})
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
