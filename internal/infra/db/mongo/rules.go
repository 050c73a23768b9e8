package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/money"
)

// RulesRepository reads the per-listing rule collections. Each collection
// holds at most one document per listing, keyed by listing id.
type RulesRepository struct {
	price *mongo.Collection
	stay  *mongo.Collection
	house *mongo.Collection
}

func NewRulesRepository(db *mongo.Database) *RulesRepository {
	return &RulesRepository{
		price: db.Collection("price_rules"),
		stay:  db.Collection("booking_rules"),
		house: db.Collection("house_rules"),
	}
}

type priceRuleDocument struct {
	ListingID       string  `bson:"_id"`
	Currency        string  `bson:"currency"`
	BasePrice       int64   `bson:"base_price"`
	WeekendPrice    int64   `bson:"weekend_price"`
	WeeklyDiscount  float64 `bson:"weekly_discount_percent"`
	MonthlyDiscount float64 `bson:"monthly_discount_percent"`
	CleaningFee     int64   `bson:"cleaning_fee"`
	PetFee          int64   `bson:"pet_fee"`
}

type stayRuleDocument struct {
	ListingID     string `bson:"_id"`
	MinStay       int    `bson:"min_stay"`
	MaxStay       int    `bson:"max_stay"`
	AdvanceNotice int    `bson:"advance_notice"`
}

type houseRuleDocument struct {
	ListingID   string `bson:"_id"`
	GuestsMax   int    `bson:"guests_max"`
	PetsAllowed bool   `bson:"pets_allowed"`
}

func (r *RulesRepository) PriceRule(ctx context.Context, id domainlistings.ListingID) (domainlistings.PricingContext, error) {
	var doc priceRuleDocument
	if err := findByListing(ctx, r.price, id, &doc); err != nil {
		return domainlistings.PricingContext{}, err
	}
	return domainlistings.PricingContext{
		BasePricePerNight:        money.Money{Amount: doc.BasePrice, Currency: doc.Currency},
		BasePricePerNightWeekend: money.Money{Amount: doc.WeekendPrice, Currency: doc.Currency},
		WeeklyDiscountPercent:    doc.WeeklyDiscount,
		MonthlyDiscountPercent:   doc.MonthlyDiscount,
		CleaningFee:              money.Money{Amount: doc.CleaningFee, Currency: doc.Currency},
		PetFee:                   money.Money{Amount: doc.PetFee, Currency: doc.Currency},
	}, nil
}

func (r *RulesRepository) StayRules(ctx context.Context, id domainlistings.ListingID) (domainlistings.StayConstraints, error) {
	var doc stayRuleDocument
	if err := findByListing(ctx, r.stay, id, &doc); err != nil {
		return domainlistings.StayConstraints{}, err
	}
	return domainlistings.StayConstraints{MinStay: doc.MinStay, MaxStay: doc.MaxStay, AdvanceNotice: doc.AdvanceNotice}, nil
}

func (r *RulesRepository) HouseRules(ctx context.Context, id domainlistings.ListingID) (domainlistings.HouseRules, error) {
	var doc houseRuleDocument
	if err := findByListing(ctx, r.house, id, &doc); err != nil {
		return domainlistings.HouseRules{}, err
	}
	return domainlistings.HouseRules{GuestsMax: doc.GuestsMax, PetsAllowed: doc.PetsAllowed}, nil
}

func (r *RulesRepository) SavePriceRule(ctx context.Context, id domainlistings.ListingID, p domainlistings.PricingContext) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := priceRuleDocument{
		ListingID:       string(id),
		Currency:        p.BasePricePerNight.Currency,
		BasePrice:       p.BasePricePerNight.Amount,
		WeekendPrice:    p.BasePricePerNightWeekend.Amount,
		WeeklyDiscount:  p.WeeklyDiscountPercent,
		MonthlyDiscount: p.MonthlyDiscountPercent,
		CleaningFee:     p.CleaningFee.Amount,
		PetFee:          p.PetFee.Amount,
	}
	return replaceByListing(ctx, r.price, doc.ListingID, doc)
}

func (r *RulesRepository) SaveStayRules(ctx context.Context, id domainlistings.ListingID, s domainlistings.StayConstraints) error {
	doc := stayRuleDocument{ListingID: string(id), MinStay: s.MinStay, MaxStay: s.MaxStay, AdvanceNotice: s.AdvanceNotice}
	return replaceByListing(ctx, r.stay, doc.ListingID, doc)
}

func (r *RulesRepository) SaveHouseRules(ctx context.Context, id domainlistings.ListingID, h domainlistings.HouseRules) error {
	if err := h.Validate(); err != nil {
		return err
	}
	doc := houseRuleDocument{ListingID: string(id), GuestsMax: h.GuestsMax, PetsAllowed: h.PetsAllowed}
	return replaceByListing(ctx, r.house, doc.ListingID, doc)
}

func findByListing(ctx context.Context, col *mongo.Collection, id domainlistings.ListingID, out any) error {
	err := col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domainlistings.ErrRulesNotFound
	}
	return err
}

func replaceByListing(ctx context.Context, col *mongo.Collection, id string, doc any) error {
	_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

var (
	_ domainlistings.RulesQuery  = (*RulesRepository)(nil)
	_ domainlistings.RulesWriter = (*RulesRepository)(nil)
)
