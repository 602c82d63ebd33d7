package navigation

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ridebud/internal/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("RIDEBUD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RIDEBUD_TEST_MONGO_URI not set; skipping MongoDB-backed tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("ridebud_test")
	if err := db.Collection(collectionName).Drop(ctx); err != nil {
		t.Fatalf("drop collection: %v", err)
	}
	s := NewStore(db, "EUR")
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return s
}

func TestStore_CostLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.SetCosts(ctx, []Cost{
		{JourneyID: "j1", RideID: "r1", PerPassenger: 15},
		{JourneyID: "j2", RideID: "r1", PerPassenger: 15},
	})
	if err != nil {
		t.Fatalf("SetCosts: %v", err)
	}
	if err := s.SetCosts(ctx, []Cost{{JourneyID: "j1", RideID: "r1", PerPassenger: 30}}); err != nil {
		t.Fatalf("SetCosts update: %v", err)
	}
	rec, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.CostPerPassenger != 30 || rec.RideID != "r1" || rec.Currency != "EUR" {
		t.Fatalf("record = %+v", rec)
	}

	if err := s.Delete(ctx, types.ID("j1"), types.ID("j2")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "j2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestStore_PutRoute(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.PutRoute(ctx, "r9", "25 mins", "12.4 km"); err != nil {
		t.Fatalf("PutRoute: %v", err)
	}
	rec, err := s.Get(ctx, "r9")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.DurationText != "25 mins" || rec.DistanceText != "12.4 km" {
		t.Fatalf("record = %+v", rec)
	}
}
