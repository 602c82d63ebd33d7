// README: Journey service: submission, match hand-off and the journey/ride state reconciler.
package journey

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ridebud/internal/events"
	"ridebud/internal/maps"
	"ridebud/internal/modules/carpool"
	"ridebud/internal/modules/location"
	"ridebud/internal/modules/matching"
	"ridebud/internal/modules/navigation"
	"ridebud/internal/modules/pricing"
	"ridebud/internal/observability"
	"ridebud/internal/types"
)

var (
	ErrNotFound       = errors.New("journey not found")
	ErrNotMatched     = errors.New("journey is not matched to a ride")
	ErrAlreadyMatched = errors.New("journey is already matched to another ride")
	ErrInvalidState   = errors.New("invalid state transition")
	ErrStaleWrite     = errors.New("stale write: journey or ride changed concurrently")
	ErrForbidden      = errors.New("journey belongs to another rider")
	ErrBadRequest     = errors.New("bad request")
)

type NavRecords interface {
	SetCosts(ctx context.Context, costs []navigation.Cost) error
	PutRoute(ctx context.Context, rideID types.ID, durationText, distanceText string) error
	Delete(ctx context.Context, ids ...types.ID) error
}

type RideIndex interface {
	IndexRide(ctx context.Context, r *carpool.Ride) error
	RemoveRide(ctx context.Context, id types.ID) error
}

type Matcher interface {
	FindBalancedRide(ctx context.Context, req matching.Request) (*matching.Candidate, error)
}

type Router interface {
	Estimate(ctx context.Context, origin, destination types.Point) (maps.Route, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

// Deps wires the service. Nav, Index, Routes, Geocoder and Events are optional.
type Deps struct {
	Repo     Repository
	Nav      NavRecords
	Index    RideIndex
	Matcher  Matcher
	Pricing  *pricing.Service
	Routes   Router
	Geocoder Geocoder
	Events   events.Publisher
	Log      logrus.FieldLogger
	Location *time.Location
}

type Service struct {
	repo     Repository
	nav      NavRecords
	index    RideIndex
	matcher  Matcher
	pricing  *pricing.Service
	routes   Router
	geocoder Geocoder
	events   events.Publisher
	log      logrus.FieldLogger
	loc      *time.Location
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Pricing == nil {
		d.Pricing = pricing.NewService(d.Log)
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Service{
		repo:     d.Repo,
		nav:      d.Nav,
		index:    d.Index,
		matcher:  d.Matcher,
		pricing:  d.Pricing,
		routes:   d.Routes,
		geocoder: d.Geocoder,
		events:   d.Events,
		log:      d.Log.WithField("module", "journey"),
		loc:      d.Location,
		tracer:   otel.Tracer("ridebud/journey"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type SubmitCommand struct {
	RiderID         types.ID
	OriginText      string
	DestinationText string
	Origin          *types.Point
	Destination     *types.Point
	PreferredAt     time.Time
	PassengerCount  int
}

type MatchCommand struct {
	JourneyID types.ID
	ActorID   types.ID
}

type OfferCommand struct {
	JourneyID types.ID
	ActorID   types.ID
}

// JoinCommand joins a journey to a ride. A zero PassengerCount means the
// journey's declared count.
type JoinCommand struct {
	JourneyID      types.ID
	RideID         types.ID
	ActorID        types.ID
	PassengerCount int
}

type LeaveCommand struct {
	JourneyID types.ID
	ActorID   types.ID
}

type CompleteCommand struct {
	JourneyID types.ID
	ActorID   types.ID
}

type CancelCommand struct {
	JourneyID types.ID
	ActorID   types.ID
}

type DeleteCommand struct {
	JourneyID types.ID
	ActorID   types.ID
}

// MatchOutcome holds either the best candidate or the ride offered because
// nothing matched.
type MatchOutcome struct {
	Candidate *matching.Candidate
	Offered   *carpool.Ride
}

type JoinResult struct {
	Ride             *carpool.Ride
	Share            float64
	UpdatedPeerCosts []navigation.Cost
}

type LeaveResult struct {
	ResetPeerJourneyIDs []types.ID
	RideDeleted         bool
	UpdatedPeerCosts    []navigation.Cost
}

type CompleteResult struct {
	AffectedJourneyIDs []types.ID
}

// effects are applied once the transaction has committed.
type effects struct {
	costs   []navigation.Cost
	dropNav []types.ID
	routes  []*carpool.Ride
	index   []*carpool.Ride
	unindex []types.ID
	events  []events.Event
}

func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*Journey, error) {
	if cmd.RiderID == "" || cmd.PreferredAt.IsZero() {
		return nil, ErrBadRequest
	}
	if cmd.PassengerCount == 0 {
		cmd.PassengerCount = MinPassengers
	}
	if cmd.PassengerCount < MinPassengers || cmd.PassengerCount > MaxPassengers {
		return nil, ErrBadRequest
	}
	if (cmd.Origin == nil && cmd.OriginText == "") || (cmd.Destination == nil && cmd.DestinationText == "") {
		return nil, ErrBadRequest
	}
	for _, p := range []*types.Point{cmd.Origin, cmd.Destination} {
		if p != nil && !p.Valid() {
			return nil, ErrBadRequest
		}
	}

	now := s.now()
	j := &Journey{
		ID:              types.NewID(),
		RiderID:         cmd.RiderID,
		OriginText:      cmd.OriginText,
		DestinationText: cmd.DestinationText,
		Origin:          s.geocode(ctx, cmd.Origin, cmd.OriginText),
		Destination:     s.geocode(ctx, cmd.Destination, cmd.DestinationText),
		PreferredAt:     cmd.PreferredAt.UTC(),
		PassengerCount:  cmd.PassengerCount,
		Status:          StatusPendingSelection,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.run(ctx, "submit", func(ctx context.Context, tx Tx, _ *effects) error {
		if err := tx.CreateJourney(ctx, j); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, s.event(j.ID, StatusNone, j.Status, ActorRider))
	})
	if err != nil {
		return nil, err
	}
	return j.Clone(), nil
}

// Get returns a journey owned by actor. An empty actor skips the ownership check.
func (s *Service) Get(ctx context.Context, id, actor types.ID) (*Journey, error) {
	var out *Journey
	err := s.repo.InTx(ctx, func(tx Tx) error {
		j, err := s.loadOwned(ctx, tx, id, actor)
		out = j
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Acknowledge returns the journey as stored and clears its one-shot
// wasResetByOwner flag.
func (s *Service) Acknowledge(ctx context.Context, id, actor types.ID) (*Journey, error) {
	var out *Journey
	err := s.repo.InTx(ctx, func(tx Tx) error {
		j, err := s.loadOwned(ctx, tx, id, actor)
		if err != nil {
			return err
		}
		out = j.Clone()
		if !j.WasResetByOwner {
			return nil
		}
		j.WasResetByOwner = false
		return s.save(ctx, tx, j, j.Status, ActorRider)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetRide(ctx context.Context, id types.ID) (*carpool.Ride, error) {
	var out *carpool.Ride
	err := s.repo.InTx(ctx, func(tx Tx) error {
		r, err := tx.GetRide(ctx, id)
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestMatch looks for a ride for an unmatched journey. When nothing
// matches, the journey is offered as a ride of its own.
func (s *Service) RequestMatch(ctx context.Context, cmd MatchCommand) (*MatchOutcome, error) {
	j, err := s.Get(ctx, cmd.JourneyID, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		return nil, ErrInvalidState
	}
	if j.MatchedRideID != nil {
		return nil, ErrAlreadyMatched
	}

	cand, err := s.matcher.FindBalancedRide(ctx, matching.Request{
		JourneyID:      j.ID,
		RiderID:        j.RiderID,
		Origin:         j.Origin,
		Destination:    j.Destination,
		PreferredAt:    j.PreferredAt,
		PassengerCount: j.PassengerCount,
	})
	if err != nil {
		return nil, err
	}
	if cand != nil {
		return &MatchOutcome{Candidate: cand}, nil
	}

	ride, err := s.Offer(ctx, OfferCommand{JourneyID: j.ID, ActorID: cmd.ActorID})
	if err != nil {
		return nil, err
	}
	return &MatchOutcome{Offered: ride}, nil
}

// Offer turns a journey into a carpool ride that other journeys can join.
func (s *Service) Offer(ctx context.Context, cmd OfferCommand) (*carpool.Ride, error) {
	j, err := s.Get(ctx, cmd.JourneyID, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		return nil, ErrInvalidState
	}
	if j.MatchedRideID != nil {
		return nil, ErrAlreadyMatched
	}
	route := s.routeFor(ctx, j)
	price := s.pricing.Estimate(pricing.ModeTaxi, maps.DistanceKm(route.DistanceText), pricing.OptionsAt(j.PreferredAt, s.loc, false))

	var ride *carpool.Ride
	err = s.run(ctx, "offer", func(ctx context.Context, tx Tx, eff *effects) error {
		cur, err := s.loadOwned(ctx, tx, cmd.JourneyID, cmd.ActorID)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return ErrInvalidState
		}
		if cur.MatchedRideID != nil {
			return ErrAlreadyMatched
		}

		now := s.now()
		ride = &carpool.Ride{
			ID:             types.NewID(),
			OwnerID:        cur.RiderID,
			PickupText:     cur.OriginText,
			DropoffText:    cur.DestinationText,
			Pickup:         cur.Origin,
			Dropoff:        cur.Destination,
			StartTime:      cur.PreferredAt,
			Date:           carpool.DayOf(cur.PreferredAt),
			RiderIDs:       []types.ID{cur.RiderID},
			Status:         carpool.StatusNoMatch,
			EstimatedPrice: price,
			DurationText:   route.DurationText,
			DistanceText:   route.DistanceText,
			PassengerCount: cur.PassengerCount,
			CreatedAt:      now,
		}
		if err := tx.CreateRide(ctx, ride); err != nil {
			return err
		}

		from := cur.Status
		cur.MatchedRideID = &ride.ID
		if err := moveTo(cur, DeriveStatus(cur, ride)); err != nil {
			return err
		}
		if err := s.save(ctx, tx, cur, from, ActorOwner); err != nil {
			return err
		}

		eff.index = append(eff.index, ride)
		eff.routes = append(eff.routes, ride)
		eff.costs = append(eff.costs, navigation.Cost{JourneyID: cur.ID, RideID: ride.ID, PerPassenger: ride.PerPassengerCost()})
		eff.events = append(eff.events, events.Event{
			Type: events.RideOffered, RideID: ride.ID, JourneyID: cur.ID, RiderID: cur.RiderID, At: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride.Clone(), nil
}

// Join adds the journey's rider to a ride and redistributes the ride's price
// over every journey on it. Joining a ride twice only recomputes the costs.
// A journey that only holds its own unshared offer withdraws it first.
func (s *Service) Join(ctx context.Context, cmd JoinCommand) (*JoinResult, error) {
	if cmd.RideID == "" {
		return nil, ErrBadRequest
	}
	if cmd.PassengerCount != 0 && (cmd.PassengerCount < MinPassengers || cmd.PassengerCount > MaxPassengers) {
		return nil, ErrBadRequest
	}

	var res *JoinResult
	err := s.run(ctx, "join", func(ctx context.Context, tx Tx, eff *effects) error {
		j, err := s.loadOwned(ctx, tx, cmd.JourneyID, cmd.ActorID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return ErrInvalidState
		}
		if j.MatchedRideID != nil && *j.MatchedRideID != cmd.RideID {
			if err := s.withdrawOffer(ctx, tx, j, eff); err != nil {
				return err
			}
		}

		ride, err := tx.GetRide(ctx, cmd.RideID)
		if err != nil {
			return err
		}
		if ride.Terminal() {
			return ErrInvalidState
		}

		pax := cmd.PassengerCount
		if pax == 0 {
			pax = j.PassengerCount
		}
		if ride.AddRider(j.RiderID) {
			ride.PassengerCount += pax
			j.PassengerCount = pax
		}
		if ride.Shared() {
			ride.Status = carpool.StatusMatched
		}
		if err := s.saveRide(ctx, tx, ride); err != nil {
			return err
		}

		from := j.Status
		j.MatchedRideID = &ride.ID
		if err := moveTo(j, DeriveStatus(j, ride)); err != nil {
			return err
		}
		if err := s.save(ctx, tx, j, from, ActorRider); err != nil {
			return err
		}

		costs, err := s.syncRiders(ctx, tx, ride, eff)
		if err != nil {
			return err
		}
		res = &JoinResult{
			Ride:             ride.Clone(),
			Share:            ride.PerPassengerCost(),
			UpdatedPeerCosts: exclude(costs, j.ID),
		}
		eff.events = append(eff.events, events.Event{
			Type: events.RideJoined, RideID: ride.ID, JourneyID: j.ID, RiderID: j.RiderID, At: s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Leave detaches a journey from its ride. An owner leaving tears the ride
// down and resets every co-rider; anyone else leaving redistributes the cost.
func (s *Service) Leave(ctx context.Context, cmd LeaveCommand) (*LeaveResult, error) {
	var res *LeaveResult
	err := s.run(ctx, "leave", func(ctx context.Context, tx Tx, eff *effects) error {
		j, err := s.loadOwned(ctx, tx, cmd.JourneyID, cmd.ActorID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return ErrInvalidState
		}
		if j.MatchedRideID == nil {
			return ErrNotMatched
		}
		res, err = s.leave(ctx, tx, j, eff)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Complete marks the journey completed and cascades completion to its ride
// and to every other journey on that ride.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*CompleteResult, error) {
	var res *CompleteResult
	err := s.run(ctx, "complete", func(ctx context.Context, tx Tx, eff *effects) error {
		res = &CompleteResult{AffectedJourneyIDs: []types.ID{}}
		j, err := s.loadOwned(ctx, tx, cmd.JourneyID, cmd.ActorID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return ErrInvalidState
		}
		from := j.Status
		if err := moveTo(j, StatusCompleted); err != nil {
			return err
		}
		if err := s.save(ctx, tx, j, from, ActorRider); err != nil {
			return err
		}
		if j.MatchedRideID == nil {
			return nil
		}

		ride, err := tx.GetRide(ctx, *j.MatchedRideID)
		if errors.Is(err, carpool.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !ride.Terminal() {
			ride.Status = carpool.StatusCompleted
			if err := s.saveRide(ctx, tx, ride); err != nil {
				return err
			}
		}

		peers, err := tx.JourneysByRide(ctx, ride.ID)
		if err != nil {
			return err
		}
		for _, p := range peers {
			if p.ID == j.ID || p.Status.Terminal() {
				continue
			}
			pf := p.Status
			if err := moveTo(p, StatusCompleted); err != nil {
				return err
			}
			if err := s.save(ctx, tx, p, pf, ActorSystem); err != nil {
				return err
			}
			res.AffectedJourneyIDs = append(res.AffectedJourneyIDs, p.ID)
		}

		eff.unindex = append(eff.unindex, ride.ID)
		eff.events = append(eff.events, events.Event{
			Type: events.RideCompleted, RideID: ride.ID, JourneyID: j.ID, RiderID: j.RiderID,
			Affected: res.AffectedJourneyIDs, At: s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel leaves any ride and marks the journey cancelled.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Journey, error) {
	var out *Journey
	err := s.run(ctx, "cancel", func(ctx context.Context, tx Tx, eff *effects) error {
		j, err := s.loadOwned(ctx, tx, cmd.JourneyID, cmd.ActorID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return ErrInvalidState
		}
		if j.MatchedRideID != nil {
			if _, err := s.leave(ctx, tx, j, eff); err != nil {
				return err
			}
		}
		from := j.Status
		if err := moveTo(j, StatusCancelled); err != nil {
			return err
		}
		if err := s.save(ctx, tx, j, from, ActorRider); err != nil {
			return err
		}
		eff.events = append(eff.events, events.Event{
			Type: events.JourneyCancelled, JourneyID: j.ID, RiderID: j.RiderID, At: s.now(),
		})
		out = j.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete leaves any ride, then removes the journey and its navigation record.
func (s *Service) Delete(ctx context.Context, cmd DeleteCommand) error {
	return s.run(ctx, "delete", func(ctx context.Context, tx Tx, eff *effects) error {
		j, err := s.loadOwned(ctx, tx, cmd.JourneyID, cmd.ActorID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return ErrInvalidState
		}
		if j.MatchedRideID != nil {
			if _, err := s.leave(ctx, tx, j, eff); err != nil {
				return err
			}
		}
		if err := tx.DeleteJourney(ctx, j.ID); err != nil {
			return err
		}
		eff.dropNav = append(eff.dropNav, j.ID)
		return nil
	})
}

func (s *Service) leave(ctx context.Context, tx Tx, j *Journey, eff *effects) (*LeaveResult, error) {
	res := &LeaveResult{ResetPeerJourneyIDs: []types.ID{}, UpdatedPeerCosts: []navigation.Cost{}}
	rideID := *j.MatchedRideID
	ride, err := tx.GetRide(ctx, rideID)
	if err != nil && !errors.Is(err, carpool.ErrNotFound) {
		return nil, err
	}
	if ride != nil && ride.Terminal() {
		return nil, ErrInvalidState
	}

	from := j.Status
	j.MatchedRideID = nil
	if err := moveTo(j, StatusPendingSelection); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, j, from, ActorRider); err != nil {
		return nil, err
	}
	eff.dropNav = append(eff.dropNav, j.ID)

	if ride == nil {
		s.log.WithFields(logrus.Fields{"journey_id": j.ID, "ride_id": rideID}).Warn("journey referenced a missing ride")
		return res, nil
	}

	ev := events.Event{Type: events.RideLeft, RideID: ride.ID, JourneyID: j.ID, RiderID: j.RiderID, At: s.now()}
	if j.RiderID == ride.OwnerID {
		peers, err := tx.JourneysByRide(ctx, ride.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range peers {
			if p.Status.Terminal() {
				continue
			}
			pf := p.Status
			p.MatchedRideID = nil
			p.WasResetByOwner = true
			if err := moveTo(p, StatusPendingSelection); err != nil {
				return nil, err
			}
			if err := s.save(ctx, tx, p, pf, ActorOwner); err != nil {
				return nil, err
			}
			res.ResetPeerJourneyIDs = append(res.ResetPeerJourneyIDs, p.ID)
		}
		if err := s.dropRide(ctx, tx, ride.ID, eff); err != nil {
			return nil, err
		}
		res.RideDeleted = true
		eff.dropNav = append(eff.dropNav, res.ResetPeerJourneyIDs...)
		ev.Type = events.RideReset
		ev.Affected = res.ResetPeerJourneyIDs
		eff.events = append(eff.events, ev)
		return res, nil
	}

	ride.RemoveRider(j.RiderID)
	ride.PassengerCount -= j.PassengerCount
	if ride.PassengerCount < 0 {
		ride.PassengerCount = 0
	}
	if len(ride.RiderIDs) == 0 {
		if err := s.dropRide(ctx, tx, ride.ID, eff); err != nil {
			return nil, err
		}
		res.RideDeleted = true
		eff.events = append(eff.events, ev)
		return res, nil
	}
	if !ride.Shared() {
		ride.Status = carpool.StatusNoMatch
	}
	if err := s.saveRide(ctx, tx, ride); err != nil {
		return nil, err
	}
	costs, err := s.syncRiders(ctx, tx, ride, eff)
	if err != nil {
		return nil, err
	}
	res.UpdatedPeerCosts = costs
	eff.events = append(eff.events, ev)
	return res, nil
}

// withdrawOffer lets a journey whose only link is its own unshared offer (or a
// dangling ride reference) move to another ride.
func (s *Service) withdrawOffer(ctx context.Context, tx Tx, j *Journey, eff *effects) error {
	cur, err := tx.GetRide(ctx, *j.MatchedRideID)
	if err != nil && !errors.Is(err, carpool.ErrNotFound) {
		return err
	}
	if cur != nil && (cur.OwnerID != j.RiderID || cur.Shared()) {
		return ErrAlreadyMatched
	}
	_, err = s.leave(ctx, tx, j, eff)
	return err
}

// syncRiders brings every active journey on ride to its derived status and
// returns the per-passenger cost each of them now owes.
func (s *Service) syncRiders(ctx context.Context, tx Tx, ride *carpool.Ride, eff *effects) ([]navigation.Cost, error) {
	journeys, err := tx.JourneysByRide(ctx, ride.ID)
	if err != nil {
		return nil, err
	}
	share := ride.PerPassengerCost()
	costs := make([]navigation.Cost, 0, len(journeys))
	for _, p := range journeys {
		if p.Status.Terminal() {
			continue
		}
		if want := DeriveStatus(p, ride); want != p.Status {
			from := p.Status
			if err := moveTo(p, want); err != nil {
				return nil, err
			}
			if err := s.save(ctx, tx, p, from, ActorSystem); err != nil {
				return nil, err
			}
		}
		costs = append(costs, navigation.Cost{JourneyID: p.ID, RideID: ride.ID, PerPassenger: share})
	}
	eff.costs = append(eff.costs, costs...)
	return costs, nil
}

func (s *Service) dropRide(ctx context.Context, tx Tx, id types.ID, eff *effects) error {
	if err := tx.DeleteRide(ctx, id); err != nil {
		return err
	}
	eff.dropNav = append(eff.dropNav, id)
	eff.unindex = append(eff.unindex, id)
	return nil
}

func (s *Service) loadOwned(ctx context.Context, tx Tx, id, actor types.ID) (*Journey, error) {
	j, err := tx.GetJourney(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != "" && j.RiderID != actor {
		return nil, ErrForbidden
	}
	return j, nil
}

func moveTo(j *Journey, to Status) error {
	if j.Status == to {
		return nil
	}
	if !CanTransition(j.Status, to) {
		return ErrInvalidState
	}
	j.Status = to
	return nil
}

// save writes j and logs a status event when its status moved from from.
func (s *Service) save(ctx context.Context, tx Tx, j *Journey, from Status, actor string) error {
	j.UpdatedAt = s.now()
	ok, err := tx.UpdateJourney(ctx, j)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleWrite
	}
	if from == j.Status {
		return nil
	}
	return tx.AppendEvent(ctx, s.event(j.ID, from, j.Status, actor))
}

func (s *Service) saveRide(ctx context.Context, tx Tx, r *carpool.Ride) error {
	ok, err := tx.UpdateRide(ctx, r)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleWrite
	}
	return nil
}

func (s *Service) event(id types.ID, from, to Status, actor string) *Event {
	return &Event{JourneyID: id, FromStatus: from, ToStatus: to, Actor: actor, CreatedAt: s.now()}
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context, Tx, *effects) error) error {
	ctx, span := s.tracer.Start(ctx, "journey."+op)
	defer span.End()

	var eff *effects
	err := s.repo.InTx(ctx, func(tx Tx) error {
		eff = &effects{}
		return fn(ctx, tx, eff)
	})
	observability.ReconcileTotal.WithLabelValues(op, observability.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.apply(ctx, op, eff)
	return nil
}

// apply pushes committed changes to the navigation store, the geo index and
// the event stream. Failures are logged; the journey store stays authoritative.
func (s *Service) apply(ctx context.Context, op string, eff *effects) {
	log := s.log.WithField("op", op)
	if s.nav != nil {
		// Deletes go first: a journey that moved rides gets a fresh cost below.
		if err := s.nav.Delete(ctx, eff.dropNav...); err != nil {
			log.WithError(err).Error("delete navigation records")
		}
		if err := s.nav.SetCosts(ctx, eff.costs); err != nil {
			log.WithError(err).Error("update navigation costs")
		}
		for _, r := range eff.routes {
			if err := s.nav.PutRoute(ctx, r.ID, r.DurationText, r.DistanceText); err != nil {
				log.WithError(err).WithField("ride_id", r.ID).Error("store ride route")
			}
		}
	}
	if s.index != nil {
		for _, r := range eff.index {
			if err := s.index.IndexRide(ctx, r); err != nil {
				log.WithError(err).WithField("ride_id", r.ID).Error("index ride")
			}
		}
		for _, id := range eff.unindex {
			if err := s.index.RemoveRide(ctx, id); err != nil {
				log.WithError(err).WithField("ride_id", id).Error("unindex ride")
			}
		}
	}
	for _, e := range eff.events {
		if err := s.events.Publish(ctx, e); err != nil {
			log.WithError(err).WithField("event", e.Type).Warn("publish event")
		}
	}
}

func (s *Service) geocode(ctx context.Context, p *types.Point, text string) *types.Point {
	if p != nil || s.geocoder == nil || text == "" {
		return p
	}
	pt, err := s.geocoder.Geocode(ctx, text)
	if err != nil {
		s.log.WithError(err).WithField("address", text).Warn("geocoding failed")
		return nil
	}
	return &pt
}

// routeFor asks the route collaborator for distance/duration text and falls
// back to the straight-line distance.
func (s *Service) routeFor(ctx context.Context, j *Journey) maps.Route {
	if j.Origin == nil || j.Destination == nil {
		return maps.Route{}
	}
	if s.routes != nil {
		r, err := s.routes.Estimate(ctx, *j.Origin, *j.Destination)
		if err == nil {
			return r
		}
		s.log.WithError(err).WithField("journey_id", j.ID).Warn("route lookup failed, using straight-line distance")
	}
	m := int(math.Round(location.DistanceMeters(*j.Origin, *j.Destination)))
	return maps.Route{DistanceText: maps.FormatDistance(m), DistanceMeters: m}
}

func exclude(costs []navigation.Cost, id types.ID) []navigation.Cost {
	out := make([]navigation.Cost, 0, len(costs))
	for _, c := range costs {
		if c.JourneyID != id {
			out = append(out, c)
		}
	}
	return out
}
