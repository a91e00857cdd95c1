package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaintax "innkeeper/internal/domain/tax"
)

type TaxRepository struct {
	rules  *mongo.Collection
	groups *mongo.Collection
}

func NewTaxRepository(db *mongo.Database) *TaxRepository {
	return &TaxRepository{
		rules:  db.Collection("tax_rules"),
		groups: db.Collection("tax_groups"),
	}
}

type taxRuleDocument struct {
	ID           string  `bson:"_id"`
	HotelID      string  `bson:"hotel_id"`
	Name         string  `bson:"name"`
	Code         string  `bson:"code"`
	Type         string  `bson:"type"`
	Value        float64 `bson:"value"`
	ApplicableOn string  `bson:"applicable_on"`
	ValidFrom    int64   `bson:"valid_from"`
	ValidTo      int64   `bson:"valid_to"`
	Region       string  `bson:"region"`
	Priority     int     `bson:"priority"`
}

func newTaxRuleDocument(r domaintax.Rule) taxRuleDocument {
	return taxRuleDocument{
		ID:           r.ID,
		HotelID:      r.HotelID,
		Name:         r.Name,
		Code:         r.Code,
		Type:         string(r.Type),
		Value:        r.Value,
		ApplicableOn: string(r.ApplicableOn),
		ValidFrom:    r.ValidFrom.UnixMilli(),
		ValidTo:      r.ValidTo.UnixMilli(),
		Region:       r.Region,
		Priority:     r.Priority,
	}
}

func (d taxRuleDocument) toRule() domaintax.Rule {
	return domaintax.Rule{
		ID:           d.ID,
		HotelID:      d.HotelID,
		Name:         d.Name,
		Code:         d.Code,
		Type:         domaintax.RuleType(d.Type),
		Value:        d.Value,
		ApplicableOn: domaintax.ApplicableOn(d.ApplicableOn),
		ValidFrom:    millisToTime(d.ValidFrom),
		ValidTo:      millisToTime(d.ValidTo),
		Region:       d.Region,
		Priority:     d.Priority,
	}
}

func (r *TaxRepository) SaveRule(ctx context.Context, rule domaintax.Rule) error {
	doc := newTaxRuleDocument(rule)
	opts := options.Update().SetUpsert(true)
	_, err := r.rules.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *TaxRepository) RuleByID(ctx context.Context, id string) (*domaintax.Rule, error) {
	var doc taxRuleDocument
	if err := r.rules.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaintax.ErrRuleNotFound
		}
		return nil, err
	}
	rule := doc.toRule()
	return &rule, nil
}

// RulesByIDs returns rules in the order the ids were given, preserving group
// evaluation order regardless of how the cursor yields them.
func (r *TaxRepository) RulesByIDs(ctx context.Context, ids []string) ([]domaintax.Rule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.rules.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var docs []taxRuleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	byID := make(map[string]domaintax.Rule, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc.toRule()
	}
	rules := make([]domaintax.Rule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := byID[id]; ok {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

func (r *TaxRepository) DeleteRule(ctx context.Context, id string) error {
	res, err := r.rules.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domaintax.ErrRuleNotFound
	}
	return nil
}

type taxGroupDocument struct {
	ID       string   `bson:"_id"`
	HotelID  string   `bson:"hotel_id"`
	Name     string   `bson:"name"`
	Code     string   `bson:"code"`
	RuleIDs  []string `bson:"rule_ids"`
	IsActive bool     `bson:"is_active"`
}

func (r *TaxRepository) SaveGroup(ctx context.Context, group domaintax.Group) error {
	doc := taxGroupDocument{
		ID:       group.ID,
		HotelID:  group.HotelID,
		Name:     group.Name,
		Code:     group.Code,
		RuleIDs:  group.RuleIDs,
		IsActive: group.IsActive,
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.groups.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *TaxRepository) GroupByID(ctx context.Context, id string) (*domaintax.Group, error) {
	var doc taxGroupDocument
	if err := r.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaintax.ErrGroupNotFound
		}
		return nil, err
	}
	return &domaintax.Group{
		ID:       doc.ID,
		HotelID:  doc.HotelID,
		Name:     doc.Name,
		Code:     doc.Code,
		RuleIDs:  doc.RuleIDs,
		IsActive: doc.IsActive,
	}, nil
}

var _ domaintax.Repository = (*TaxRepository)(nil)
