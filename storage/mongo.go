package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yeremiapane/fnb-kiosk/models"
)

const mongoCollection = "orders"

// MongoStore is the primary document backend.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	avail  *availability
}

// NewMongoStore connects lazily; the first ping happens in Probe or on the
// first availability re-check.
func NewMongoStore(ctx context.Context, uri, database string, probeInterval time.Duration) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}
	s.avail = newAvailability(probeInterval, s.ping)
	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) IsAvailable(ctx context.Context) bool { return s.avail.check(ctx) }

func (s *MongoStore) MarkUnavailable(err error) { s.avail.markDown(err) }

func (s *MongoStore) Probe(ctx context.Context) error { return s.avail.probe(ctx) }

func (s *MongoStore) ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the unique orderId index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create orderId index: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Save(ctx context.Context, order *models.Order) error {
	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.coll.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

func (s *MongoStore) Update(ctx context.Context, order *models.Order) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"orderId": order.OrderID},
		bson.M{"$set": bson.M{
			"customerName":  order.CustomerName,
			"customerPhone": order.CustomerPhone,
			"status":        order.Status,
			"paymentStatus": order.PaymentStatus,
			"paymentMethod": order.PaymentMethod,
			"updatedAt":     order.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, orderID string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]models.Order, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (s *MongoStore) Clear(ctx context.Context) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("clear orders: %w", err)
	}
	return result.DeletedCount, nil
}
