package adapters

import (
	"context"
	"fmt"
	"time"

	courier "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/orders/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// OrdersCollection is the MongoDB collection holding orders.
const OrdersCollection = "orders"

// MongoOrderRepository implements ports.OrderRepository on MongoDB.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates an order repository over the given database.
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection(OrdersCollection),
	}
}

// objectID parses an order id, so malformed ids read as "not found" rather
// than as driver errors.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// FindByID returns the order, or nil when it does not exist.
func (r *MongoOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}

	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return &order, nil
}

// SetCourierBooking persists the courier sub-record in one update.
func (r *MongoOrderRepository) SetCourierBooking(ctx context.Context, id string, info domain.CourierInfo) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("invalid order id: %s", id)
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"courier":   info,
			"updatedAt": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to persist courier booking on order %s: %w", id, err)
	}
	return nil
}

// SetCourierStatus persists a refreshed courier status and replaces the
// provider event log.
func (r *MongoOrderRepository) SetCourierStatus(ctx context.Context, id string, status courier.CourierStatus, steps []courier.TrackingEvent) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("invalid order id: %s", id)
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"courier.status":          status,
			"courier.trackingSteps":   steps,
			"courier.statusCheckedAt": time.Now(),
			"updatedAt":               time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to persist courier status on order %s: %w", id, err)
	}
	return nil
}

// ClearCourierBooking removes the courier sub-record.
func (r *MongoOrderRepository) ClearCourierBooking(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return fmt.Errorf("invalid order id: %s", id)
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$unset": bson.M{"courier": ""},
			"$set":   bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to clear courier booking on order %s: %w", id, err)
	}
	return nil
}
