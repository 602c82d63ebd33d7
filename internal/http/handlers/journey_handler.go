// README: Journey handlers: submit, read, match, offer, join, leave, complete, cancel, delete.
package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/modules/journey"
	"ridebud/internal/modules/matching"
	"ridebud/internal/modules/navigation"
	"ridebud/internal/types"
)

type JourneyService interface {
	Submit(ctx context.Context, cmd journey.SubmitCommand) (*journey.Journey, error)
	Acknowledge(ctx context.Context, id, actor types.ID) (*journey.Journey, error)
	RequestMatch(ctx context.Context, cmd journey.MatchCommand) (*journey.MatchOutcome, error)
	Offer(ctx context.Context, cmd journey.OfferCommand) (*carpool.Ride, error)
	Join(ctx context.Context, cmd journey.JoinCommand) (*journey.JoinResult, error)
	Leave(ctx context.Context, cmd journey.LeaveCommand) (*journey.LeaveResult, error)
	Complete(ctx context.Context, cmd journey.CompleteCommand) (*journey.CompleteResult, error)
	Cancel(ctx context.Context, cmd journey.CancelCommand) (*journey.Journey, error)
	Delete(ctx context.Context, cmd journey.DeleteCommand) error
}

type JourneyHandler struct {
	journeys JourneyService
}

func NewJourneyHandler(svc JourneyService) *JourneyHandler {
	return &JourneyHandler{journeys: svc}
}

type submitJourneyReq struct {
	OriginText      string       `json:"origin_text"`
	DestinationText string       `json:"destination_text"`
	Origin          *types.Point `json:"origin"`
	Destination     *types.Point `json:"destination"`
	PreferredAt     time.Time    `json:"preferred_at"`
	PassengerCount  int          `json:"passenger_count"`
}

type joinReq struct {
	RideID         string `json:"ride_id"`
	PassengerCount int    `json:"passenger_count"`
}

type candidateResp struct {
	Ride                    *carpool.Ride `json:"ride"`
	PickupClose             bool          `json:"pickup_close"`
	DropoffClose            bool          `json:"dropoff_close"`
	SecondaryDistanceMeters *float64      `json:"secondary_distance_meters"`
	EstimatedPrice          float64       `json:"estimated_price"`
	PassengerCount          int           `json:"passenger_count"`
}

type matchResp struct {
	Candidate   *candidateResp `json:"candidate"`
	OfferedRide *carpool.Ride  `json:"offered_ride"`
}

type joinResp struct {
	Ride             *carpool.Ride     `json:"ride"`
	Share            float64           `json:"share"`
	UpdatedPeerCosts []navigation.Cost `json:"updated_peer_costs"`
}

type leaveResp struct {
	ResetPeerJourneyIDs []types.ID        `json:"reset_peer_journey_ids"`
	RideDeleted         bool              `json:"ride_deleted"`
	UpdatedPeerCosts    []navigation.Cost `json:"updated_peer_costs"`
}

type completeResp struct {
	AffectedJourneyIDs []types.ID `json:"affected_journey_ids"`
}

func (h *JourneyHandler) Submit(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	var req submitJourneyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	j, err := h.journeys.Submit(c.Request.Context(), journey.SubmitCommand{
		RiderID:         uid,
		OriginText:      req.OriginText,
		DestinationText: req.DestinationText,
		Origin:          req.Origin,
		Destination:     req.Destination,
		PreferredAt:     req.PreferredAt,
		PassengerCount:  req.PassengerCount,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, j)
}

// Get returns the journey and consumes its wasResetByOwner flag.
func (h *JourneyHandler) Get(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	j, err := h.journeys.Acknowledge(c.Request.Context(), id, uid)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, j)
}

func (h *JourneyHandler) Match(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	out, err := h.journeys.RequestMatch(c.Request.Context(), journey.MatchCommand{JourneyID: id, ActorID: uid})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp := matchResp{OfferedRide: out.Offered}
	if out.Candidate != nil {
		resp.Candidate = toCandidateResp(out.Candidate)
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *JourneyHandler) Offer(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	ride, err := h.journeys.Offer(c.Request.Context(), journey.OfferCommand{JourneyID: id, ActorID: uid})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, ride)
}

func (h *JourneyHandler) Join(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	var req joinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !types.ValidID(req.RideID) {
		writeError(c, http.StatusBadRequest, "invalid ride_id")
		return
	}
	res, err := h.journeys.Join(c.Request.Context(), journey.JoinCommand{
		JourneyID:      id,
		RideID:         types.ID(req.RideID),
		ActorID:        uid,
		PassengerCount: req.PassengerCount,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, joinResp{Ride: res.Ride, Share: res.Share, UpdatedPeerCosts: orEmpty(res.UpdatedPeerCosts)})
}

func (h *JourneyHandler) Leave(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	res, err := h.journeys.Leave(c.Request.Context(), journey.LeaveCommand{JourneyID: id, ActorID: uid})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, leaveResp{
		ResetPeerJourneyIDs: orEmpty(res.ResetPeerJourneyIDs),
		RideDeleted:         res.RideDeleted,
		UpdatedPeerCosts:    orEmpty(res.UpdatedPeerCosts),
	})
}

func (h *JourneyHandler) Complete(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	res, err := h.journeys.Complete(c.Request.Context(), journey.CompleteCommand{JourneyID: id, ActorID: uid})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, completeResp{AffectedJourneyIDs: orEmpty(res.AffectedJourneyIDs)})
}

func (h *JourneyHandler) Cancel(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	j, err := h.journeys.Cancel(c.Request.Context(), journey.CancelCommand{JourneyID: id, ActorID: uid})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, j)
}

func (h *JourneyHandler) Delete(c *gin.Context) {
	uid, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.journeys.Delete(c.Request.Context(), journey.DeleteCommand{JourneyID: id, ActorID: uid}); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JourneyHandler) target(c *gin.Context) (types.ID, types.ID, bool) {
	uid, ok := caller(c)
	if !ok {
		return "", "", false
	}
	id, ok := pathID(c)
	if !ok {
		return "", "", false
	}
	return uid, id, true
}

func toCandidateResp(cand *matching.Candidate) *candidateResp {
	out := &candidateResp{
		Ride:           cand.Ride,
		PickupClose:    cand.PickupClose,
		DropoffClose:   cand.DropoffClose,
		EstimatedPrice: cand.EstimatedPrice,
		PassengerCount: cand.PassengerCount,
	}
	// JSON has no infinity; an unrankable candidate reports null.
	if !math.IsInf(cand.SecondaryDistanceMeters, 0) && !math.IsNaN(cand.SecondaryDistanceMeters) {
		d := cand.SecondaryDistanceMeters
		out.SecondaryDistanceMeters = &d
	}
	return out
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
