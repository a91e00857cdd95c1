package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpromo "innkeeper/internal/domain/promo"
)

type PromoRepository struct {
	codes  *mongo.Collection
	usages *mongo.Collection
}

func NewPromoRepository(db *mongo.Database) *PromoRepository {
	return &PromoRepository{
		codes:  db.Collection("promocodes"),
		usages: db.Collection("promocode_usages"),
	}
}

type promocodeDocument struct {
	ID                string   `bson:"_id"`
	PropertyCode      string   `bson:"property_code"`
	Code              string   `bson:"code"`
	DiscountType      string   `bson:"discount_type"`
	DiscountValue     float64  `bson:"discount_value"`
	ValidFrom         int64    `bson:"valid_from"`
	ValidTo           int64    `bson:"valid_to"`
	MinBookingAmount  float64  `bson:"min_booking_amount"`
	MaxDiscountAmount float64  `bson:"max_discount_amount"`
	UseLimit          int      `bson:"use_limit"`
	UsageLimitPerUser int      `bson:"usage_limit_per_user"`
	CurrentUsage      int      `bson:"current_usage"`
	UsedBy            []string `bson:"used_by"`
	IsActive          bool     `bson:"is_active"`
}

func newPromocodeDocument(p *domainpromo.Promocode) promocodeDocument {
	return promocodeDocument{
		ID:                p.ID,
		PropertyCode:      p.PropertyCode,
		Code:              strings.ToUpper(p.Code),
		DiscountType:      string(p.DiscountType),
		DiscountValue:     p.DiscountValue,
		ValidFrom:         p.ValidFrom.UnixMilli(),
		ValidTo:           p.ValidTo.UnixMilli(),
		MinBookingAmount:  p.MinBookingAmount,
		MaxDiscountAmount: p.MaxDiscountAmount,
		UseLimit:          p.UseLimit,
		UsageLimitPerUser: p.UsageLimitPerUser,
		CurrentUsage:      p.CurrentUsage,
		UsedBy:            p.UsedBy,
		IsActive:          p.IsActive,
	}
}

func (d promocodeDocument) toPromocode() *domainpromo.Promocode {
	return &domainpromo.Promocode{
		ID:                d.ID,
		PropertyCode:      d.PropertyCode,
		Code:              d.Code,
		DiscountType:      domainpromo.DiscountType(d.DiscountType),
		DiscountValue:     d.DiscountValue,
		ValidFrom:         millisToTime(d.ValidFrom),
		ValidTo:           millisToTime(d.ValidTo),
		MinBookingAmount:  d.MinBookingAmount,
		MaxDiscountAmount: d.MaxDiscountAmount,
		UseLimit:          d.UseLimit,
		UsageLimitPerUser: d.UsageLimitPerUser,
		CurrentUsage:      d.CurrentUsage,
		UsedBy:            d.UsedBy,
		IsActive:          d.IsActive,
	}
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (r *PromoRepository) Save(ctx context.Context, p *domainpromo.Promocode) error {
	doc := newPromocodeDocument(p)
	opts := options.Update().SetUpsert(true)
	_, err := r.codes.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *PromoRepository) ByCode(ctx context.Context, propertyCode, code string) (*domainpromo.Promocode, error) {
	filter := bson.M{"property_code": propertyCode, "code": strings.ToUpper(code)}
	var doc promocodeDocument
	if err := r.codes.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpromo.ErrCodeNotFound
		}
		return nil, err
	}
	return doc.toPromocode(), nil
}

// ConsumeOnce makes the usage-limit decision inside the database: the filter
// admits only an active code whose counter is still below its limit, and the
// increment rides the same update. Concurrent consumers serialize on the
// document; the loser of the race sees no match, never a stale count.
func (r *PromoRepository) ConsumeOnce(ctx context.Context, propertyCode, code, customerID string) (*domainpromo.Promocode, error) {
	filter := bson.M{
		"property_code": propertyCode,
		"code":          strings.ToUpper(code),
		"is_active":     true,
		"$expr": bson.M{"$or": bson.A{
			bson.M{"$lte": bson.A{"$use_limit", 0}},
			bson.M{"$lt": bson.A{"$current_usage", "$use_limit"}},
		}},
	}
	update := bson.M{
		"$inc":      bson.M{"current_usage": 1},
		"$addToSet": bson.M{"used_by": customerID},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc promocodeDocument
	if err := r.codes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a missing/inactive code from an exhausted one.
			if _, lookupErr := r.ByCode(ctx, propertyCode, code); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, domainpromo.ErrUsageLimitReached
		}
		return nil, err
	}
	return doc.toPromocode(), nil
}

type usageDocument struct {
	ID               string  `bson:"_id"`
	PromoCodeID      string  `bson:"promo_code_id"`
	BookingID        string  `bson:"booking_id"`
	CustomerID       string  `bson:"customer_id"`
	DiscountType     string  `bson:"discount_type"`
	DiscountValue    float64 `bson:"discount_value"`
	OriginalAmount   float64 `bson:"original_amount"`
	DiscountedAmount float64 `bson:"discounted_amount"`
	FinalAmount      float64 `bson:"final_amount"`
	DiscountApplied  float64 `bson:"discount_applied"`
	Status           string  `bson:"status"`
	CreatedAt        int64   `bson:"created_at"`
	UpdatedAt        int64   `bson:"updated_at"`
}

func (r *PromoRepository) InsertUsage(ctx context.Context, usage domainpromo.Usage) error {
	doc := usageDocument{
		ID:               usage.ID,
		PromoCodeID:      usage.PromoCodeID,
		BookingID:        usage.BookingID,
		CustomerID:       usage.CustomerID,
		DiscountType:     string(usage.DiscountType),
		DiscountValue:    usage.DiscountValue,
		OriginalAmount:   usage.OriginalAmount,
		DiscountedAmount: usage.DiscountedAmount,
		FinalAmount:      usage.FinalAmount,
		DiscountApplied:  usage.DiscountApplied,
		Status:           string(usage.Status),
		CreatedAt:        usage.CreatedAt.UnixMilli(),
		UpdatedAt:        usage.UpdatedAt.UnixMilli(),
	}
	_, err := r.usages.InsertOne(ctx, doc)
	return err
}

func (r *PromoRepository) UsageByBooking(ctx context.Context, bookingID string) (*domainpromo.Usage, error) {
	var doc usageDocument
	if err := r.usages.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpromo.ErrUsageNotFound
		}
		return nil, err
	}
	usage := domainpromo.Usage{
		ID:               doc.ID,
		PromoCodeID:      doc.PromoCodeID,
		BookingID:        doc.BookingID,
		CustomerID:       doc.CustomerID,
		DiscountType:     domainpromo.DiscountType(doc.DiscountType),
		DiscountValue:    doc.DiscountValue,
		OriginalAmount:   doc.OriginalAmount,
		DiscountedAmount: doc.DiscountedAmount,
		FinalAmount:      doc.FinalAmount,
		DiscountApplied:  doc.DiscountApplied,
		Status:           domainpromo.UsageStatus(doc.Status),
		CreatedAt:        millisToTime(doc.CreatedAt),
		UpdatedAt:        millisToTime(doc.UpdatedAt),
	}
	return &usage, nil
}

func (r *PromoRepository) CountAppliedByCustomer(ctx context.Context, promoCodeID, customerID string) (int, error) {
	count, err := r.usages.CountDocuments(ctx, bson.M{
		"promo_code_id": promoCodeID,
		"customer_id":   customerID,
		"status":        string(domainpromo.UsageApplied),
	})
	return int(count), err
}

func (r *PromoRepository) UpdateUsageStatus(ctx context.Context, usageID string, status domainpromo.UsageStatus) error {
	res, err := r.usages.UpdateOne(ctx, bson.M{"_id": usageID}, bson.M{"$set": bson.M{
		"status":     string(status),
		"updated_at": time.Now().UTC().UnixMilli(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpromo.ErrUsageNotFound
	}
	return nil
}

func (r *PromoRepository) RestoreQuota(ctx context.Context, promoCodeID string) error {
	res, err := r.codes.UpdateOne(ctx,
		bson.M{"_id": promoCodeID, "current_usage": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"current_usage": -1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpromo.ErrCodeNotFound
	}
	return nil
}

var _ domainpromo.Repository = (*PromoRepository)(nil)
