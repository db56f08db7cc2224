package db

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// code returned by the server for a namespace that does not exist yet
const errCodeNamespaceNotFound = 26

// ListCollectionIndexes returns the index specifications of collection. A collection that was not
// created yet has no indexes.
func ListCollectionIndexes(ctx context.Context, collection *mongo.Collection) ([]bson.M, error) {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == errCodeNamespaceNotFound {
			return []bson.M{}, nil
		}
		return nil, err
	}
	defer cursor.Close(ctx)

	indexes := []bson.M{}
	if err = cursor.All(ctx, &indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}

// IndexNames returns the sorted names of the given index specifications.
func IndexNames(indexes []bson.M) []string {
	names := make([]string, 0, len(indexes))
	for _, index := range indexes {
		if name, ok := index["name"].(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
