// README: Journey store backed by PostgreSQL; every reconciler step runs in one transaction.
package journey

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/types"
)

// Tx is the set of reads and writes one reconciler step performs atomically.
// Update methods are compare-and-set on Version and report whether they applied.
type Tx interface {
	GetJourney(ctx context.Context, id types.ID) (*Journey, error)
	JourneysByRide(ctx context.Context, rideID types.ID) ([]*Journey, error)
	CreateJourney(ctx context.Context, j *Journey) error
	UpdateJourney(ctx context.Context, j *Journey) (bool, error)
	DeleteJourney(ctx context.Context, id types.ID) error
	AppendEvent(ctx context.Context, e *Event) error

	GetRide(ctx context.Context, id types.ID) (*carpool.Ride, error)
	CreateRide(ctx context.Context, r *carpool.Ride) error
	UpdateRide(ctx context.Context, r *carpool.Ride) (bool, error)
	DeleteRide(ctx context.Context, id types.ID) error
}

type Repository interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// InTx runs fn in a transaction that commits when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(Tx) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&pgTx{db: tx, rides: carpool.NewStore(tx)})
	})
}

type pgTx struct {
	db    carpool.DBTX
	rides *carpool.Store
}

func (t *pgTx) GetRide(ctx context.Context, id types.ID) (*carpool.Ride, error) {
	return t.rides.Get(ctx, id)
}

func (t *pgTx) CreateRide(ctx context.Context, r *carpool.Ride) error {
	return t.rides.Create(ctx, r)
}

func (t *pgTx) UpdateRide(ctx context.Context, r *carpool.Ride) (bool, error) {
	return t.rides.Update(ctx, r)
}

func (t *pgTx) DeleteRide(ctx context.Context, id types.ID) error {
	return t.rides.Delete(ctx, id)
}

const journeyColumns = `
	id, rider_id, origin_text, destination_text,
	origin_lng, origin_lat, destination_lng, destination_lat,
	preferred_at, passenger_count, status, matched_ride_id,
	was_reset_by_owner, version, created_at, updated_at`

func (t *pgTx) CreateJourney(ctx context.Context, j *Journey) error {
	oLng, oLat := types.SplitPoint(j.Origin)
	dLng, dLat := types.SplitPoint(j.Destination)
	_, err := t.db.Exec(ctx, `
		INSERT INTO journeys (`+journeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		string(j.ID),
		string(j.RiderID),
		j.OriginText, j.DestinationText,
		oLng, oLat, dLng, dLat,
		j.PreferredAt,
		j.PassengerCount,
		string(j.Status),
		toStringPtr(j.MatchedRideID),
		j.WasResetByOwner,
		j.Version,
		j.CreatedAt, j.UpdatedAt,
	)
	return err
}

func (t *pgTx) GetJourney(ctx context.Context, id types.ID) (*Journey, error) {
	row := t.db.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, string(id))
	j, err := scanJourney(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

func (t *pgTx) JourneysByRide(ctx context.Context, rideID types.ID) ([]*Journey, error) {
	rows, err := t.db.Query(ctx, `
		SELECT `+journeyColumns+`
		FROM journeys
		WHERE matched_ride_id = $1
		ORDER BY created_at, id`, string(rideID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (t *pgTx) UpdateJourney(ctx context.Context, j *Journey) (bool, error) {
	tag, err := t.db.Exec(ctx, `
		UPDATE journeys
		SET status = $1,
		    matched_ride_id = $2,
		    was_reset_by_owner = $3,
		    passenger_count = $4,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $5 AND version = $6`,
		string(j.Status),
		toStringPtr(j.MatchedRideID),
		j.WasResetByOwner,
		j.PassengerCount,
		string(j.ID),
		j.Version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	j.Version++
	return true, nil
}

func (t *pgTx) DeleteJourney(ctx context.Context, id types.ID) error {
	_, err := t.db.Exec(ctx, `DELETE FROM journeys WHERE id = $1`, string(id))
	return err
}

func (t *pgTx) AppendEvent(ctx context.Context, e *Event) error {
	_, err := t.db.Exec(ctx, `
		INSERT INTO journey_events (
			journey_id, from_status, to_status, actor, created_at
		) VALUES ($1, $2, $3, $4, $5)`,
		string(e.JourneyID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.Actor,
		e.CreatedAt,
	)
	return err
}

func scanJourney(row pgx.Row) (*Journey, error) {
	var (
		j                      Journey
		id, riderID, status    string
		matchedRideID          *string
		oLng, oLat, dLng, dLat *float64
		preferredAt            time.Time
	)
	err := row.Scan(
		&id, &riderID, &j.OriginText, &j.DestinationText,
		&oLng, &oLat, &dLng, &dLat,
		&preferredAt, &j.PassengerCount, &status, &matchedRideID,
		&j.WasResetByOwner, &j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.ID = types.ID(id)
	j.RiderID = types.ID(riderID)
	j.Status = Status(status)
	j.PreferredAt = preferredAt
	j.Origin = types.JoinPoint(oLng, oLat)
	j.Destination = types.JoinPoint(dLng, dLat)
	if matchedRideID != nil {
		r := types.ID(*matchedRideID)
		j.MatchedRideID = &r
	}
	return &j, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
