package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaininventory "innkeeper/internal/domain/inventory"
	"innkeeper/internal/domain/shared/staynights"
)

type InventoryRepository struct {
	col *mongo.Collection
}

func NewInventoryRepository(db *mongo.Database) *InventoryRepository {
	return &InventoryRepository{col: db.Collection("inventory_ledger")}
}

type inventoryDocument struct {
	HotelCode    string `bson:"hotel_code"`
	RoomTypeCode string `bson:"room_type_code"`
	Date         int64  `bson:"date"`
	Available    int    `bson:"available"`
	Sold         int    `bson:"sold"`
	Blocked      int    `bson:"blocked"`
	SourceName   string `bson:"source_name"`
	Epoch        int64  `bson:"epoch"`
}

func (d inventoryDocument) toRecord() domaininventory.Record {
	return domaininventory.Record{
		HotelCode:    d.HotelCode,
		RoomTypeCode: d.RoomTypeCode,
		Date:         time.UnixMilli(d.Date).UTC(),
		Available:    d.Available,
		Sold:         d.Sold,
		Blocked:      d.Blocked,
		SourceName:   d.SourceName,
		Epoch:        d.Epoch,
	}
}

func keyFilter(key domaininventory.Key) bson.M {
	return bson.M{
		"hotel_code":     key.HotelCode,
		"room_type_code": key.RoomTypeCode,
		"date":           key.Date.UnixMilli(),
	}
}

// Upsert replaces the cell's counts keyed by the natural tuple, so
// re-applying the same payload converges on the same stored state.
func (r *InventoryRepository) Upsert(ctx context.Context, key domaininventory.Key, counts domaininventory.Counts, sourceName string, epoch int64) error {
	if err := counts.Validate(); err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"available":   counts.Available,
		"sold":        counts.Sold,
		"blocked":     counts.Blocked,
		"source_name": sourceName,
		"epoch":       epoch,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, keyFilter(key), update, opts)
	return err
}

func (r *InventoryRepository) ByDate(ctx context.Context, key domaininventory.Key, epoch int64) (*domaininventory.Record, error) {
	filter := keyFilter(key)
	filter["epoch"] = epoch
	var doc inventoryDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaininventory.ErrRecordNotFound
		}
		return nil, err
	}
	rec := doc.toRecord()
	return &rec, nil
}

func (r *InventoryRepository) RangeByRoomType(ctx context.Context, hotel, roomType string, start, end time.Time, epoch int64) ([]domaininventory.Record, error) {
	filter := bson.M{
		"hotel_code":     hotel,
		"room_type_code": roomType,
		"epoch":          epoch,
		"date": bson.M{
			"$gte": staynights.Midnight(start).UnixMilli(),
			"$lte": staynights.Midnight(end).UnixMilli(),
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domaininventory.Record
	for cur.Next(ctx) {
		var doc inventoryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toRecord())
	}
	return out, cur.Err()
}

// Reserve performs the decrement as one conditional update: the filter
// requires available >= rooms, so concurrent reservations serialize on the
// document and can never drive availability negative.
func (r *InventoryRepository) Reserve(ctx context.Context, key domaininventory.Key, rooms int, epoch int64) error {
	filter := keyFilter(key)
	filter["epoch"] = epoch
	filter["available"] = bson.M{"$gte": rooms}
	update := bson.M{"$inc": bson.M{"available": -rooms, "sold": rooms}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domaininventory.ErrInsufficientRooms
	}
	return nil
}

func (r *InventoryRepository) ReleaseStale(ctx context.Context, hotel string, keepEpoch int64) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{
		"hotel_code": hotel,
		"epoch":      bson.M{"$lt": keepEpoch},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

var _ domaininventory.Ledger = (*InventoryRepository)(nil)
