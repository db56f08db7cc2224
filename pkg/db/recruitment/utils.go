package recruitment

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrHasDependents = errors.New("entity still has dependent records")

var sortByCreatedDesc = bson.D{{Key: "createdAt", Value: -1}}

func findPage[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, sort bson.D, page int64, limit int64) (types.Page[T], error) {
	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return types.Page[T]{}, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return types.Page[T]{}, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return types.Page[T]{}, err
	}
	return types.NewPage(items, total, page, limit), nil
}

func findAll[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// updateAndGet applies set (and other operators in extra) to the document with id and returns
// the updated document. A missing document yields mongo.ErrNoDocuments.
func updateAndGet[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, set bson.M, extra bson.M) (T, error) {
	var result T

	fields := bson.M{"updatedAt": time.Now()}
	for k, v := range set {
		fields[k] = v
	}
	update := bson.M{"$set": fields}
	for op, v := range extra {
		update[op] = v
	}

	err := collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&result)
	return result, err
}

func findByID[T any](ctx context.Context, collection *mongo.Collection, id primitive.ObjectID) (T, error) {
	var result T
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	return result, err
}

// SearchFilter matches term case-insensitively as a literal substring of any of the fields.
func SearchFilter(term string, fields ...string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := bson.A{}
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}

func refFilter(prefix string, ref types.EntityRef) bson.M {
	return bson.M{
		prefix + ".entityType": ref.Type,
		prefix + ".entityId":   ref.ID,
	}
}
