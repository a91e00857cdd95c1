package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainrateplan "innkeeper/internal/domain/rateplan"
	"innkeeper/internal/domain/shared/staynights"
)

type RatePlanRepository struct {
	col *mongo.Collection
}

func NewRatePlanRepository(db *mongo.Database) *RatePlanRepository {
	return &RatePlanRepository{col: db.Collection("rate_plan_store")}
}

type guestAmountDocument struct {
	AmountBeforeTax float64 `bson:"amount_before_tax"`
	NumberOfGuests  int     `bson:"number_of_guests"`
}

type additionalAmountDocument struct {
	AgeQualifyingCode int     `bson:"age_qualifying_code"`
	Amount            float64 `bson:"amount"`
}

type restrictionsDocument struct {
	MinStay           int  `bson:"min_stay"`
	MaxStay           int  `bson:"max_stay"`
	ClosedToArrival   bool `bson:"closed_to_arrival"`
	ClosedToDeparture bool `bson:"closed_to_departure"`
	StopSell          bool `bson:"stop_sell"`
}

type rateChargeDocument struct {
	HotelCode    string                     `bson:"hotel_code"`
	RoomTypeCode string                     `bson:"room_type_code"`
	RatePlanCode string                     `bson:"rate_plan_code"`
	RatePlanName string                     `bson:"rate_plan_name"`
	Date         int64                      `bson:"date"`
	CurrencyCode string                     `bson:"currency_code"`
	BaseByGuest  []guestAmountDocument      `bson:"base_by_guest"`
	Additional   []additionalAmountDocument `bson:"additional_guest_amounts"`
	Days         [7]bool                    `bson:"day_applicability"`
	Restrictions restrictionsDocument       `bson:"restrictions"`
	SourceName   string                     `bson:"source_name"`
	Epoch        int64                      `bson:"epoch"`
}

func newRateChargeDocument(c domainrateplan.Charge) rateChargeDocument {
	doc := rateChargeDocument{
		HotelCode:    c.HotelCode,
		RoomTypeCode: c.RoomTypeCode,
		RatePlanCode: c.RatePlanCode,
		RatePlanName: c.RatePlanName,
		Date:         c.Date.UnixMilli(),
		CurrencyCode: c.CurrencyCode,
		Days:         [7]bool{c.Days.Mon, c.Days.Tue, c.Days.Wed, c.Days.Thu, c.Days.Fri, c.Days.Sat, c.Days.Sun},
		Restrictions: restrictionsDocument{
			MinStay:           c.Restrictions.MinStay,
			MaxStay:           c.Restrictions.MaxStay,
			ClosedToArrival:   c.Restrictions.ClosedToArrival,
			ClosedToDeparture: c.Restrictions.ClosedToDeparture,
			StopSell:          c.Restrictions.StopSell,
		},
		SourceName: c.SourceName,
		Epoch:      c.Epoch,
	}
	for _, ga := range c.BaseByGuest {
		doc.BaseByGuest = append(doc.BaseByGuest, guestAmountDocument{AmountBeforeTax: ga.AmountBeforeTax, NumberOfGuests: ga.NumberOfGuests})
	}
	for _, aa := range c.Additional {
		doc.Additional = append(doc.Additional, additionalAmountDocument{AgeQualifyingCode: aa.AgeQualifyingCode, Amount: aa.Amount})
	}
	return doc
}

func (d rateChargeDocument) toCharge() domainrateplan.Charge {
	c := domainrateplan.Charge{
		HotelCode:    d.HotelCode,
		RoomTypeCode: d.RoomTypeCode,
		RatePlanCode: d.RatePlanCode,
		RatePlanName: d.RatePlanName,
		Date:         time.UnixMilli(d.Date).UTC(),
		CurrencyCode: d.CurrencyCode,
		Days: domainrateplan.DayApplicability{
			Mon: d.Days[0], Tue: d.Days[1], Wed: d.Days[2], Thu: d.Days[3],
			Fri: d.Days[4], Sat: d.Days[5], Sun: d.Days[6],
		},
		Restrictions: domainrateplan.Restrictions{
			MinStay:           d.Restrictions.MinStay,
			MaxStay:           d.Restrictions.MaxStay,
			ClosedToArrival:   d.Restrictions.ClosedToArrival,
			ClosedToDeparture: d.Restrictions.ClosedToDeparture,
			StopSell:          d.Restrictions.StopSell,
		},
		SourceName: d.SourceName,
		Epoch:      d.Epoch,
	}
	for _, ga := range d.BaseByGuest {
		c.BaseByGuest = append(c.BaseByGuest, domainrateplan.GuestAmount{AmountBeforeTax: ga.AmountBeforeTax, NumberOfGuests: ga.NumberOfGuests})
	}
	for _, aa := range d.Additional {
		c.Additional = append(c.Additional, domainrateplan.AdditionalGuestAmount{AgeQualifyingCode: aa.AgeQualifyingCode, Amount: aa.Amount})
	}
	return c
}

func (r *RatePlanRepository) Upsert(ctx context.Context, key domainrateplan.Key, charge domainrateplan.Charge) error {
	filter := bson.M{
		"hotel_code":     key.HotelCode,
		"room_type_code": key.RoomTypeCode,
		"rate_plan_code": key.RatePlanCode,
		"date":           key.Date.UnixMilli(),
	}
	update := bson.M{"$set": newRateChargeDocument(charge)}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *RatePlanRepository) ChargesForDate(ctx context.Context, hotel, roomType string, date time.Time, epoch int64) ([]domainrateplan.Charge, error) {
	filter := bson.M{
		"hotel_code":     hotel,
		"room_type_code": roomType,
		"date":           staynights.Midnight(date).UnixMilli(),
		"epoch":          epoch,
	}
	opts := options.Find().SetSort(bson.D{{Key: "rate_plan_code", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domainrateplan.Charge
	for cur.Next(ctx) {
		var doc rateChargeDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toCharge())
	}
	return out, cur.Err()
}

func (r *RatePlanRepository) ReleaseStale(ctx context.Context, hotel string, keepEpoch int64) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{
		"hotel_code": hotel,
		"epoch":      bson.M{"$lt": keepEpoch},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

var _ domainrateplan.Store = (*RatePlanRepository)(nil)
