package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (dbService *RecruitmentDBService) CreateSite(ctx context.Context, site types.Site) (types.Site, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	now := time.Now()
	site.ID = primitive.NewObjectID()
	site.CreatedAt = now
	site.UpdatedAt = now
	if site.Status == "" {
		site.Status = types.SITE_STATUS_PENDING
	}
	if site.Users == nil {
		site.Users = []primitive.ObjectID{}
	}

	_, err := dbService.collectionSites().InsertOne(ctx, site)
	return site, err
}

func (dbService *RecruitmentDBService) GetSiteByID(ctx context.Context, id primitive.ObjectID) (types.Site, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.Site](ctx, dbService.collectionSites(), id)
}

func (dbService *RecruitmentDBService) GetSites(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Site], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.Site](ctx, dbService.collectionSites(), filter, sortByCreatedDesc, page, limit)
}

func (dbService *RecruitmentDBService) UpdateSite(ctx context.Context, id primitive.ObjectID, set bson.M) (types.Site, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Site](ctx, dbService.collectionSites(), bson.M{"_id": id}, set, nil)
}

func (dbService *RecruitmentDBService) AddSiteUser(ctx context.Context, siteID primitive.ObjectID, userID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_, err := dbService.collectionSites().UpdateOne(ctx, bson.M{"_id": siteID}, bson.M{"$addToSet": bson.M{"users": userID}})
	return err
}

// DeleteSiteCascade removes the site together with its participants and their notes and file
// records, unlinks it from all studies and deactivates its users. Call it inside RunInUnitOfWork.
func (dbService *RecruitmentDBService) DeleteSiteCascade(ctx context.Context, id primitive.ObjectID) (CascadeResult, error) {
	result, err := dbService.deleteParticipantsWhere(ctx, bson.M{"siteId": id})
	if err != nil {
		return result, err
	}

	if err := dbService.pullFromArrays(ctx, dbService.collectionStudies(), "linkedSites", id); err != nil {
		return result, err
	}

	if _, err := dbService.DeactivateUsersOf(ctx, types.SiteRef(id)); err != nil {
		return result, err
	}

	if err := dbService.deleteNotesWhere(ctx, refFilter("subject", types.SiteRef(id))); err != nil {
		return result, err
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()
	res, err := dbService.collectionSites().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return result, err
	}
	if res.DeletedCount == 0 {
		return result, mongo.ErrNoDocuments
	}
	return result, nil
}
