package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateStudy stores the study and registers it at its sponsor. EnrolledSubjects always starts at 0.
func (dbService *RecruitmentDBService) CreateStudy(ctx context.Context, study types.Study) (types.Study, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	now := time.Now()
	study.ID = primitive.NewObjectID()
	study.CreatedAt = now
	study.UpdatedAt = now
	study.EnrolledSubjects = 0
	if study.Status == "" {
		study.Status = types.STUDY_STATUS_RECRUITMENT
	}
	if study.LinkedSites == nil {
		study.LinkedSites = []primitive.ObjectID{}
	}
	if study.Milestones == nil {
		study.Milestones = []primitive.ObjectID{}
	}

	if _, err := dbService.collectionStudies().InsertOne(ctx, study); err != nil {
		return study, err
	}

	_, err := dbService.collectionSponsors().UpdateOne(ctx,
		bson.M{"_id": study.SponsorID},
		bson.M{"$addToSet": bson.M{"studies": study.ID}},
	)
	return study, err
}

func (dbService *RecruitmentDBService) GetStudyByID(ctx context.Context, id primitive.ObjectID) (types.Study, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.Study](ctx, dbService.collectionStudies(), id)
}

func (dbService *RecruitmentDBService) GetStudies(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Study], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.Study](ctx, dbService.collectionStudies(), filter, sortByCreatedDesc, page, limit)
}

func (dbService *RecruitmentDBService) UpdateStudy(ctx context.Context, id primitive.ObjectID, set bson.M) (types.Study, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	delete(set, "enrolledSubjects")
	delete(set, "sponsorId")
	return updateAndGet[types.Study](ctx, dbService.collectionStudies(), bson.M{"_id": id}, set, nil)
}

func (dbService *RecruitmentDBService) LinkSiteToStudy(ctx context.Context, studyID primitive.ObjectID, siteID primitive.ObjectID) (types.Study, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Study](ctx, dbService.collectionStudies(), bson.M{"_id": studyID}, nil,
		bson.M{"$addToSet": bson.M{"linkedSites": siteID}},
	)
}

func (dbService *RecruitmentDBService) UnlinkSiteFromStudy(ctx context.Context, studyID primitive.ObjectID, siteID primitive.ObjectID) (types.Study, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Study](ctx, dbService.collectionStudies(), bson.M{"_id": studyID}, nil,
		bson.M{"$pull": bson.M{"linkedSites": siteID}},
	)
}

// Increment counter value (atomic update)
func (dbService *RecruitmentDBService) IncrementEnrolledSubjects(ctx context.Context, studyID primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	res, err := dbService.collectionStudies().UpdateOne(ctx,
		bson.M{"_id": studyID},
		bson.M{
			"$inc": bson.M{"enrolledSubjects": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetStudyFunnel counts the participants of a study per status. filter narrows the participants,
// e.g. to a single site.
func (dbService *RecruitmentDBService) GetStudyFunnel(ctx context.Context, studyID primitive.ObjectID, filter bson.M) ([]types.StatusCount, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	match := bson.M{"studyId": studyID}
	for k, v := range filter {
		match[k] = v
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := dbService.collectionParticipants().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := []types.StatusCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// DeleteStudyCascade removes the study, its participants with their notes and file records, and
// the study's own notes. Call it inside RunInUnitOfWork.
func (dbService *RecruitmentDBService) DeleteStudyCascade(ctx context.Context, study types.Study) (CascadeResult, error) {
	result, err := dbService.deleteParticipantsWhere(ctx, bson.M{"studyId": study.ID})
	if err != nil {
		return result, err
	}

	if err := dbService.deleteNotesWhere(ctx, refFilter("subject", types.StudyRef(study.ID))); err != nil {
		return result, err
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	if _, err := dbService.collectionSponsors().UpdateOne(ctx,
		bson.M{"_id": study.SponsorID},
		bson.M{"$pull": bson.M{"studies": study.ID}},
	); err != nil {
		return result, err
	}

	res, err := dbService.collectionStudies().DeleteOne(ctx, bson.M{"_id": study.ID})
	if err != nil {
		return result, err
	}
	if res.DeletedCount == 0 {
		return result, mongo.ErrNoDocuments
	}
	return result, nil
}

func (dbService *RecruitmentDBService) pullFromArrays(ctx context.Context, collection *mongo.Collection, field string, id primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_, err := collection.UpdateMany(ctx,
		bson.M{field: id},
		bson.M{"$pull": bson.M{field: id}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	return err
}
