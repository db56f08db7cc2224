package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (dbService *RecruitmentDBService) CreateUser(ctx context.Context, user types.User) (types.User, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := dbService.collectionUsers().InsertOne(ctx, user)
	return user, err
}

func (dbService *RecruitmentDBService) GetUserByID(ctx context.Context, id primitive.ObjectID) (types.User, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.User](ctx, dbService.collectionUsers(), id)
}

func (dbService *RecruitmentDBService) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	var user types.User
	err := dbService.collectionUsers().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	return user, err
}

func (dbService *RecruitmentDBService) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return dbService.collectionUsers().CountDocuments(ctx, bson.M{})
}

func (dbService *RecruitmentDBService) GetUsers(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.User], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.User](ctx, dbService.collectionUsers(), filter, sortByCreatedDesc, page, limit)
}

func (dbService *RecruitmentDBService) UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) (types.User, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.User](ctx, dbService.collectionUsers(), bson.M{"_id": id}, set, nil)
}

func (dbService *RecruitmentDBService) UpdateUserLastLogin(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_, err := dbService.collectionUsers().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLoginAt": time.Now()}})
	return err
}

// DeactivateUsersOf disables all accounts attached to the given site or sponsor.
func (dbService *RecruitmentDBService) DeactivateUsersOf(ctx context.Context, owner types.EntityRef) (int64, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	var filter bson.M
	switch owner.Type {
	case types.ENTITY_TYPE_SITE:
		filter = bson.M{"siteId": owner.ID}
	case types.ENTITY_TYPE_SPONSOR:
		filter = bson.M{"sponsorId": owner.ID}
	default:
		return 0, types.ErrInvalidEntityRef
	}

	res, err := dbService.collectionUsers().UpdateMany(ctx, filter, bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
