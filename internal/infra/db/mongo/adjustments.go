package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
)

// AdjustmentRepository stores host overrides in "date_adjustments", one
// document per (listing_id, date).
type AdjustmentRepository struct {
	col *mongo.Collection
}

func NewAdjustmentRepository(ctx context.Context, db *mongo.Database) (*AdjustmentRepository, error) {
	col := db.Collection("date_adjustments")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &AdjustmentRepository{col: col}, nil
}

// adjustmentDocument decodes date and override into interface values; they
// are normalized by the aggregator.
type adjustmentDocument struct {
	Date          any  `bson:"date"`
	OverridePrice any  `bson:"override_price"`
	Blocked       bool `bson:"blocked"`
}

func (r *AdjustmentRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainavailability.RawAdjustment, error) {
	cur, err := r.col.Find(ctx, bson.M{"listing_id": string(id)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainavailability.RawAdjustment
	for cur.Next(ctx) {
		var doc adjustmentDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domainavailability.RawAdjustment{Date: doc.Date, OverridePrice: doc.OverridePrice, Blocked: doc.Blocked})
	}
	return out, cur.Err()
}

// Upsert writes the adjustment keyed on (listing_id, date). A nil override
// clears any stored override.
func (r *AdjustmentRepository) Upsert(ctx context.Context, adj domainavailability.Adjustment) error {
	var override any
	if adj.OverridePrice != nil {
		override = adj.OverridePrice.Major()
	}
	filter := bson.M{"listing_id": string(adj.ListingID), "date": adj.Date.String()}
	update := bson.M{
		"$set": bson.M{
			"override_price": override,
			"blocked":        adj.Blocked,
			"updated_at":     time.Now().UTC(),
		},
		"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
	}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

var _ domainavailability.AdjustmentRepository = (*AdjustmentRepository)(nil)
