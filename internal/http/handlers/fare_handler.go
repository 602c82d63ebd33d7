// README: Fare estimate handler.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridebud/internal/maps"
	"ridebud/internal/modules/pricing"
)

type FareHandler struct {
	pricing *pricing.Service
	loc     *time.Location
	now     func() time.Time
}

func NewFareHandler(svc *pricing.Service, loc *time.Location) *FareHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &FareHandler{pricing: svc, loc: loc, now: time.Now}
}

// fareReq takes either distance_km or the route's distance_text, and either
// an explicit hour or a departure time. Without both the current hour applies.
type fareReq struct {
	Mode         string     `json:"mode"`
	DistanceKm   *float64   `json:"distance_km"`
	DistanceText string     `json:"distance_text"`
	Hour         *int       `json:"hour"`
	DepartAt     *time.Time `json:"depart_at"`
	IsAirport    bool       `json:"is_airport"`
}

type fareResp struct {
	Mode       string             `json:"mode"`
	DistanceKm float64            `json:"distance_km"`
	Total      float64            `json:"total"`
	Night      bool               `json:"night"`
	Breakdown  map[string]float64 `json:"breakdown,omitempty"`
}

// Estimate never fails on degraded input: unknown modes, negative distances
// and unreadable distance text price at 0.
func (h *FareHandler) Estimate(c *gin.Context) {
	var req fareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	km := maps.DistanceKm(req.DistanceText)
	if req.DistanceKm != nil {
		km = *req.DistanceKm
	}
	var opts pricing.Options
	switch {
	case req.Hour != nil:
		opts = pricing.Options{Hour: *req.Hour, IsAirport: req.IsAirport}
	case req.DepartAt != nil:
		opts = pricing.OptionsAt(*req.DepartAt, h.loc, req.IsAirport)
	default:
		opts = pricing.OptionsAt(h.now(), h.loc, req.IsAirport)
	}

	res := h.pricing.EstimateDetailed(pricing.FareRequest{Mode: pricing.Mode(req.Mode), DistanceKm: km, Options: opts})
	writeJSON(c, http.StatusOK, fareResp{
		Mode:       req.Mode,
		DistanceKm: km,
		Total:      res.Total,
		Night:      res.Night,
		Breakdown:  res.Breakdown,
	})
}
