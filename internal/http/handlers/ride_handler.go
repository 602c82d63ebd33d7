// README: Ride handlers: marketplace browse and ride lookup.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/types"
)

type RideReader interface {
	GetRide(ctx context.Context, id types.ID) (*carpool.Ride, error)
}

type RideBrowser interface {
	Browse(ctx context.Context, p types.Point) ([]*carpool.Ride, error)
}

type RideHandler struct {
	rides   RideReader
	browser RideBrowser
}

func NewRideHandler(rides RideReader, browser RideBrowser) *RideHandler {
	return &RideHandler{rides: rides, browser: browser}
}

type rideView struct {
	*carpool.Ride
	PerPassengerCost float64 `json:"per_passenger_cost"`
}

func (h *RideHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.rides.GetRide(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rideView{Ride: r, PerPassengerCost: r.PerPassengerCost()})
}

// Nearby lists joinable rides whose pickup is within the marketplace radius
// of ?lat=&lng=, nearest first.
func (h *RideHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	p := types.Point{Lng: lng, Lat: lat}
	if errLat != nil || errLng != nil || !p.Valid() {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	rides, err := h.browser.Browse(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]rideView, 0, len(rides))
	for _, r := range rides {
		out = append(out, rideView{Ride: r, PerPassengerCost: r.PerPassengerCost()})
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": out})
}
