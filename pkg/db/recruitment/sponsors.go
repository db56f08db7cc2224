package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (dbService *RecruitmentDBService) CreateSponsor(ctx context.Context, sponsor types.Sponsor) (types.Sponsor, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	now := time.Now()
	sponsor.ID = primitive.NewObjectID()
	sponsor.CreatedAt = now
	sponsor.UpdatedAt = now
	if sponsor.Admins == nil {
		sponsor.Admins = []primitive.ObjectID{}
	}
	if sponsor.Studies == nil {
		sponsor.Studies = []primitive.ObjectID{}
	}

	_, err := dbService.collectionSponsors().InsertOne(ctx, sponsor)
	return sponsor, err
}

func (dbService *RecruitmentDBService) GetSponsorByID(ctx context.Context, id primitive.ObjectID) (types.Sponsor, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.Sponsor](ctx, dbService.collectionSponsors(), id)
}

func (dbService *RecruitmentDBService) GetSponsors(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Sponsor], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.Sponsor](ctx, dbService.collectionSponsors(), filter, sortByCreatedDesc, page, limit)
}

func (dbService *RecruitmentDBService) UpdateSponsor(ctx context.Context, id primitive.ObjectID, set bson.M) (types.Sponsor, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Sponsor](ctx, dbService.collectionSponsors(), bson.M{"_id": id}, set, nil)
}

func (dbService *RecruitmentDBService) AddSponsorAdmin(ctx context.Context, sponsorID primitive.ObjectID, userID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_, err := dbService.collectionSponsors().UpdateOne(ctx, bson.M{"_id": sponsorID}, bson.M{"$addToSet": bson.M{"admins": userID}})
	return err
}

// DeleteSponsor removes a sponsor without studies and sites, otherwise ErrHasDependents is returned.
func (dbService *RecruitmentDBService) DeleteSponsor(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	for _, collection := range []*mongo.Collection{dbService.collectionStudies(), dbService.collectionSites()} {
		count, err := collection.CountDocuments(ctx, bson.M{"sponsorId": id})
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrHasDependents
		}
	}

	res, err := dbService.collectionSponsors().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
