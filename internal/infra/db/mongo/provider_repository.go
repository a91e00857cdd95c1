package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainprovider "innkeeper/internal/domain/provider"
)

type ProviderRepository struct {
	providers *mongo.Collection
	states    *mongo.Collection
}

func NewProviderRepository(db *mongo.Database) *ProviderRepository {
	return &ProviderRepository{
		providers: db.Collection("data_source_providers"),
		states:    db.Collection("source_states"),
	}
}

type providerDocument struct {
	HotelCode   string `bson:"_id"`
	Name        string `bson:"name"`
	Type        string `bson:"type"`
	IsActive    bool   `bson:"is_active"`
	APIEndpoint string `bson:"api_endpoint"`
}

type sourceStateDocument struct {
	HotelCode  string `bson:"_id"`
	SourceName string `bson:"source_name"`
	Epoch      int64  `bson:"epoch"`
}

func (r *ProviderRepository) ByHotel(ctx context.Context, hotelCode string) (*domainprovider.DataSourceProvider, error) {
	var doc providerDocument
	if err := r.providers.FindOne(ctx, bson.M{"_id": hotelCode}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainprovider.ErrProviderNotFound
		}
		return nil, err
	}
	return &domainprovider.DataSourceProvider{
		Name:        doc.Name,
		Type:        domainprovider.SourceType(doc.Type),
		IsActive:    doc.IsActive,
		APIEndpoint: doc.APIEndpoint,
	}, nil
}

func (r *ProviderRepository) SourceState(ctx context.Context, hotelCode string) (domainprovider.SourceState, error) {
	var doc sourceStateDocument
	if err := r.states.FindOne(ctx, bson.M{"_id": hotelCode}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainprovider.SourceState{HotelCode: hotelCode}, nil
		}
		return domainprovider.SourceState{}, err
	}
	return domainprovider.SourceState{
		HotelCode:  doc.HotelCode,
		SourceName: doc.SourceName,
		Epoch:      doc.Epoch,
	}, nil
}

// SwapSource advances the hotel's epoch and records the new source name in a
// single upserted update, so two batches swapping concurrently still produce
// strictly increasing epochs.
func (r *ProviderRepository) SwapSource(ctx context.Context, hotelCode, sourceName string) (domainprovider.SourceState, error) {
	filter := bson.M{"_id": hotelCode}
	update := bson.M{
		"$set": bson.M{"source_name": sourceName},
		"$inc": bson.M{"epoch": 1},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc sourceStateDocument
	if err := r.states.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return domainprovider.SourceState{}, err
	}
	return domainprovider.SourceState{
		HotelCode:  doc.HotelCode,
		SourceName: doc.SourceName,
		Epoch:      doc.Epoch,
	}, nil
}

func (r *ProviderRepository) AssignProvider(ctx context.Context, hotelCode string, p domainprovider.DataSourceProvider) error {
	doc := providerDocument{
		HotelCode:   hotelCode,
		Name:        p.Name,
		Type:        string(p.Type),
		IsActive:    p.IsActive,
		APIEndpoint: p.APIEndpoint,
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.providers.UpdateOne(ctx, bson.M{"_id": hotelCode}, bson.M{"$set": doc}, opts)
	return err
}

var _ domainprovider.Repository = (*ProviderRepository)(nil)
