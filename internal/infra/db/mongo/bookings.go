package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentcal/internal/domain/booking"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

// BookingRepository reads and mirrors bookings in the "bookings" collection.
// A booking whose dates do not decode fails the whole read: the calendar
// then treats every date as unknown rather than showing it free.
type BookingRepository struct {
	col    *mongo.Collection
	Logger *slog.Logger
}

func NewBookingRepository(ctx context.Context, db *mongo.Database) (*BookingRepository, error) {
	col := db.Collection("bookings")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "check_in", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &BookingRepository{col: col}, nil
}

// bookingDocument keeps the stay dates as decoded. Older writers stored BSON
// dates, newer ones ISO strings.
type bookingDocument struct {
	ID        string `bson:"_id"`
	ListingID string `bson:"listing_id"`
	CheckIn   any    `bson:"check_in"`
	CheckOut  any    `bson:"check_out"`
}

func (r *BookingRepository) ListByListing(ctx context.Context, id domainlistings.ListingID) ([]domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, bson.M{"listing_id": string(id)}, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.toBooking()
		if err != nil {
			r.logger().ErrorContext(ctx, "undecodable booking", "booking_id", doc.ID, "listing_id", id, "error", err)
			return nil, err
		}
		out = append(out, b)
	}
	return out, cur.Err()
}

func (r *BookingRepository) Add(ctx context.Context, b domainbooking.Booking) error {
	doc := bookingDocument{
		ID:        string(b.ID),
		ListingID: string(b.ListingID),
		CheckIn:   b.Range.Start.String(),
		CheckOut:  b.Range.End.String(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *BookingRepository) Remove(ctx context.Context, id domainbooking.BookingID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

func (r *BookingRepository) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (d bookingDocument) toBooking() (domainbooking.Booking, error) {
	start, err := daterange.Normalize(d.CheckIn)
	if err != nil {
		return domainbooking.Booking{}, fmt.Errorf("booking %s check_in: %w", d.ID, err)
	}
	end, err := daterange.Normalize(d.CheckOut)
	if err != nil {
		return domainbooking.Booking{}, fmt.Errorf("booking %s check_out: %w", d.ID, err)
	}
	b, err := domainbooking.New(domainbooking.BookingID(d.ID), domainlistings.ListingID(d.ListingID), daterange.Range{Start: start, End: end})
	if err != nil {
		return domainbooking.Booking{}, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	return b, nil
}

var (
	_ domainbooking.Repository = (*BookingRepository)(nil)
	_ domainbooking.Ledger     = (*BookingRepository)(nil)
)
