// README: Navigation store backed by MongoDB.
package navigation

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ridebud/internal/types"
)

const collectionName = "navigations"

type Store struct {
	coll     *mongo.Collection
	currency string
}

func NewStore(db *mongo.Database, currency string) *Store {
	return &Store{coll: db.Collection(collectionName), currency: currency}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ride_id", Value: 1}},
		Options: options.Index().SetName("ride_id_1"),
	})
	return err
}

// SetCosts upserts the per-passenger share of every listed journey.
func (s *Store) SetCosts(ctx context.Context, costs []Cost) error {
	if len(costs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(costs))
	for _, c := range costs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": string(c.JourneyID)}).
			SetUpdate(bson.M{"$set": bson.M{
				"ride_id":            string(c.RideID),
				"cost_per_passenger": c.PerPassenger,
				"currency":           s.currency,
				"updated_at":         now,
			}}).
			SetUpsert(true))
	}
	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

// PutRoute stores the route text of an offered ride under the ride id.
func (s *Store) PutRoute(ctx context.Context, rideID types.ID, durationText, distanceText string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": string(rideID)},
		bson.M{"$set": bson.M{
			"ride_id":       string(rideID),
			"duration_text": durationText,
			"distance_text": distanceText,
			"updated_at":    time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, ids ...types.ID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}
	_, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}
