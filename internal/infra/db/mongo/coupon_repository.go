package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpromo "innkeeper/internal/domain/promo"
)

type CouponRepository struct {
	coupons *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{coupons: db.Collection("coupons")}
}

type couponDocument struct {
	ID                 string  `bson:"_id"`
	Code               string  `bson:"code"`
	DiscountPercentage float64 `bson:"discount_percentage"`
	State              string  `bson:"state"`
	CustomerID         string  `bson:"customer_id"`
}

func newCouponDocument(c *domainpromo.Coupon) couponDocument {
	return couponDocument{
		ID:                 c.ID,
		Code:               strings.ToUpper(c.Code),
		DiscountPercentage: c.DiscountPercentage,
		State:              string(c.State),
		CustomerID:         c.CustomerID,
	}
}

func (d couponDocument) toCoupon() *domainpromo.Coupon {
	return &domainpromo.Coupon{
		ID:                 d.ID,
		Code:               d.Code,
		DiscountPercentage: d.DiscountPercentage,
		State:              domainpromo.CouponState(d.State),
		CustomerID:         d.CustomerID,
	}
}

func (r *CouponRepository) Save(ctx context.Context, c *domainpromo.Coupon) error {
	doc := newCouponDocument(c)
	opts := options.Update().SetUpsert(true)
	_, err := r.coupons.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *CouponRepository) ByCode(ctx context.Context, code string) (*domainpromo.Coupon, error) {
	var doc couponDocument
	if err := r.coupons.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpromo.ErrCouponNotFound
		}
		return nil, err
	}
	return doc.toCoupon(), nil
}

// Claim binds a fresh coupon to the customer, or re-reads one already held by
// them. The state transition is a conditional update, so two customers racing
// on the same code resolve in the store: one wins, the other reloads and sees
// a foreign holder.
func (r *CouponRepository) Claim(ctx context.Context, code, customerID string) (*domainpromo.Coupon, error) {
	filter := bson.M{
		"code": strings.ToUpper(code),
		"$or": bson.A{
			bson.M{"state": string(domainpromo.CouponFresh)},
			bson.M{"state": string(domainpromo.CouponAvailable), "customer_id": customerID},
		},
	}
	update := bson.M{"$set": bson.M{
		"state":       string(domainpromo.CouponAvailable),
		"customer_id": customerID,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc couponDocument
	if err := r.coupons.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			coupon, lookupErr := r.ByCode(ctx, code)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if err := coupon.EligibleFor(customerID); err != nil {
				return nil, err
			}
			return nil, domainpromo.ErrCouponHeld
		}
		return nil, err
	}
	return doc.toCoupon(), nil
}

func (r *CouponRepository) Consume(ctx context.Context, code, customerID string) (*domainpromo.Coupon, error) {
	filter := bson.M{
		"code":        strings.ToUpper(code),
		"state":       string(domainpromo.CouponAvailable),
		"customer_id": customerID,
	}
	update := bson.M{"$set": bson.M{"state": string(domainpromo.CouponConsumed)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc couponDocument
	if err := r.coupons.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			coupon, lookupErr := r.ByCode(ctx, code)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if coupon.State == domainpromo.CouponConsumed {
				return nil, domainpromo.ErrCouponUsed
			}
			return nil, domainpromo.ErrCouponHeld
		}
		return nil, err
	}
	return doc.toCoupon(), nil
}

var _ domainpromo.CouponRepository = (*CouponRepository)(nil)
