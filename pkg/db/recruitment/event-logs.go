package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event logs are append-only: there are no update or delete operations for this collection.

func (dbService *RecruitmentDBService) AppendEventLog(ctx context.Context, entry types.EventLog) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	_, err := dbService.collectionEventLogs().InsertOne(ctx, entry)
	return err
}

func (dbService *RecruitmentDBService) GetEventLogs(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.EventLog], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.EventLog](ctx, dbService.collectionEventLogs(), filter, sortByCreatedDesc, page, limit)
}

// GetHistory returns the log entries of one entity and action, oldest first.
func (dbService *RecruitmentDBService) GetHistory(ctx context.Context, subject types.EntityRef, action types.EventAction) ([]types.EventLog, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	filter := refFilter("subject", subject)
	filter["action"] = action
	return findAll[types.EventLog](ctx, dbService.collectionEventLogs(), filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
}
