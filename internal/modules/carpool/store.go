// README: Ride store backed by PostgreSQL; runs on a pool or inside a transaction.
package carpool

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ridebud/internal/types"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DBTX
}

func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const rideColumns = `
	id, owner_id, pickup_text, dropoff_text,
	pickup_lng, pickup_lat, dropoff_lng, dropoff_lat,
	start_time, ride_date, rider_ids, status, estimated_price,
	duration_text, distance_text, passenger_count, version, created_at`

func (s *Store) Create(ctx context.Context, r *Ride) error {
	pLng, pLat := types.SplitPoint(r.Pickup)
	dLng, dLat := types.SplitPoint(r.Dropoff)
	_, err := s.db.Exec(ctx, `
		INSERT INTO carpool_rides (`+rideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		string(r.ID),
		string(r.OwnerID),
		r.PickupText, r.DropoffText,
		pLng, pLat, dLng, dLat,
		r.StartTime, r.Date,
		idStrings(r.RiderIDs),
		string(r.Status),
		r.EstimatedPrice,
		r.DurationText, r.DistanceText,
		r.PassengerCount,
		r.Version,
		r.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM carpool_rides WHERE id = $1`, string(id))
	r, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// Update writes the mutable ride fields if the stored version still matches
// r.Version. On success r.Version is advanced.
func (s *Store) Update(ctx context.Context, r *Ride) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE carpool_rides
		SET rider_ids = $1,
		    status = $2,
		    passenger_count = $3,
		    estimated_price = $4,
		    duration_text = $5,
		    distance_text = $6,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $7 AND version = $8`,
		idStrings(r.RiderIDs),
		string(r.Status),
		r.PassengerCount,
		r.EstimatedPrice,
		r.DurationText,
		r.DistanceText,
		string(r.ID),
		r.Version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	r.Version++
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM carpool_rides WHERE id = $1`, string(id))
	return err
}

// ListOpen returns the rides among ids that are still open for matching and
// depart inside w.
func (s *Store) ListOpen(ctx context.Context, ids []types.ID, w Window) ([]*Ride, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+rideColumns+`
		FROM carpool_rides
		WHERE id = ANY($1)
		  AND status = $2
		  AND ride_date >= $3 AND ride_date < $4
		  AND start_time BETWEEN $5 AND $6`,
		idStrings(ids),
		string(StatusNoMatch),
		w.DayStart, w.DayEnd,
		w.From, w.To,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRides(rows)
}

// ListByStatus returns rides among ids whose status is one of statuses.
func (s *Store) ListByStatus(ctx context.Context, ids []types.ID, statuses ...Status) ([]*Ride, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	st := make([]string, len(statuses))
	for i, v := range statuses {
		st[i] = string(v)
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+rideColumns+`
		FROM carpool_rides
		WHERE id = ANY($1) AND status = ANY($2)`,
		idStrings(ids), st,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRides(rows)
}

func collectRides(rows pgx.Rows) ([]*Ride, error) {
	var out []*Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRide(row pgx.Row) (*Ride, error) {
	var (
		r                          Ride
		id, ownerID, status        string
		riderIDs                   []string
		pLng, pLat, dLng, dLat     *float64
		startTime, rideDate, since time.Time
	)
	err := row.Scan(
		&id, &ownerID, &r.PickupText, &r.DropoffText,
		&pLng, &pLat, &dLng, &dLat,
		&startTime, &rideDate, &riderIDs, &status, &r.EstimatedPrice,
		&r.DurationText, &r.DistanceText, &r.PassengerCount, &r.Version, &since,
	)
	if err != nil {
		return nil, err
	}
	r.ID = types.ID(id)
	r.OwnerID = types.ID(ownerID)
	r.Status = Status(status)
	r.Pickup = types.JoinPoint(pLng, pLat)
	r.Dropoff = types.JoinPoint(dLng, dLat)
	r.StartTime = startTime
	r.Date = rideDate.UTC()
	r.CreatedAt = since
	r.RiderIDs = make([]types.ID, len(riderIDs))
	for i, v := range riderIDs {
		r.RiderIDs[i] = types.ID(v)
	}
	return &r, nil
}

func idStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = string(v)
	}
	return out
}
