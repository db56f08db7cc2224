package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateFileInfo stores the file record and links it to a participant owner.
func (dbService *RecruitmentDBService) CreateFileInfo(ctx context.Context, file types.FileInfo) (types.FileInfo, error) {
	if err := file.Owner.Validate(); err != nil {
		return file, err
	}

	now := time.Now()
	if file.ID.IsZero() {
		file.ID = primitive.NewObjectID()
	}
	file.CreatedAt = now
	file.UpdatedAt = now

	insertCtx, cancel := dbService.getContext(ctx)
	defer cancel()
	if _, err := dbService.collectionFiles().InsertOne(insertCtx, file); err != nil {
		return file, err
	}

	if file.Owner.Is(types.ENTITY_TYPE_PARTICIPANT) {
		if err := dbService.addToParticipantArray(ctx, file.Owner.ID, "files", file.ID); err != nil {
			return file, err
		}
	}
	return file, nil
}

// GetFileInfoByID also returns soft deleted records.
func (dbService *RecruitmentDBService) GetFileInfoByID(ctx context.Context, id primitive.ObjectID) (types.FileInfo, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.FileInfo](ctx, dbService.collectionFiles(), id)
}

func (dbService *RecruitmentDBService) GetFileInfosForOwner(ctx context.Context, owner types.EntityRef) ([]types.FileInfo, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	filter := refFilter("owner", owner)
	filter["deletedAt"] = bson.M{"$exists": false}
	return findAll[types.FileInfo](ctx, dbService.collectionFiles(), filter,
		options.Find().SetSort(sortByCreatedDesc),
	)
}

// SoftDeleteFileInfo marks the record as deleted. Deleting an already deleted file is a not-found.
func (dbService *RecruitmentDBService) SoftDeleteFileInfo(ctx context.Context, id primitive.ObjectID) (types.FileInfo, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.FileInfo](ctx, dbService.collectionFiles(),
		bson.M{"_id": id, "deletedAt": bson.M{"$exists": false}},
		bson.M{"deletedAt": time.Now()},
		nil,
	)
}
