package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CouponsCollection is the MongoDB collection holding coupons.
const CouponsCollection = "coupons"

// MongoCouponRepository implements ports.CouponRepository on MongoDB.
type MongoCouponRepository struct {
	collection *mongo.Collection
}

// NewMongoCouponRepository creates a coupon repository over the given database.
func NewMongoCouponRepository(db *mongo.Database) *MongoCouponRepository {
	return &MongoCouponRepository{
		collection: db.Collection(CouponsCollection),
	}
}

// FindByCode returns the coupon for a normalized code, or nil when absent.
func (r *MongoCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&coupon)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon %s: %w", code, err)
	}
	return &coupon, nil
}

// Create inserts a new coupon.
func (r *MongoCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	if coupon.ID.IsZero() {
		coupon.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, coupon); err != nil {
		return fmt.Errorf("failed to create coupon %s: %w", coupon.Code, err)
	}
	return nil
}

// List returns all coupons.
func (r *MongoCouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer cursor.Close(ctx)

	var coupons []domain.Coupon
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, fmt.Errorf("failed to decode coupons: %w", err)
	}
	return coupons, nil
}

// Deactivate soft-disables a coupon by code.
func (r *MongoCouponRepository) Deactivate(ctx context.Context, code string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"code": code},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate coupon %s: %w", code, err)
	}
	return nil
}

// RecordUsage increments the usage count and appends a history entry in one
// conditional update. The filter refuses the write once usageCount has
// reached usageLimit, so concurrent redemptions serialize at the store and
// can never push the count past the limit.
func (r *MongoCouponRepository) RecordUsage(ctx context.Context, couponID string, usage domain.Usage) error {
	oid, err := primitive.ObjectIDFromHex(couponID)
	if err != nil {
		return fmt.Errorf("invalid coupon id %s: %w", couponID, err)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":   oid,
			"$expr": bson.M{"$lt": bson.A{"$usageCount", "$usageLimit"}},
		},
		bson.M{
			"$inc":  bson.M{"usageCount": 1},
			"$push": bson.M{"usageHistory": usage},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record usage on coupon %s: %w", couponID, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrUsageLimitReached
	}
	return nil
}
