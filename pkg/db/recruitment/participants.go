package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CascadeResult summarizes the records removed by a cascading delete. Files lists the removed file
// records so their content can be deleted from storage.
type CascadeResult struct {
	ParticipantsDeleted int64
	Files               []types.FileInfo
}

// CreateParticipant stores a new lead. Status, notes and files are always reset.
func (dbService *RecruitmentDBService) CreateParticipant(ctx context.Context, participant types.Participant) (types.Participant, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	now := time.Now()
	participant.ID = primitive.NewObjectID()
	participant.Status = types.PARTICIPANT_STATUS_POTENTIAL
	participant.ActivityNotes = []primitive.ObjectID{}
	participant.Files = []primitive.ObjectID{}
	participant.CreatedAt = now
	participant.UpdatedAt = now

	_, err := dbService.collectionParticipants().InsertOne(ctx, participant)
	return participant, err
}

func (dbService *RecruitmentDBService) GetParticipantByID(ctx context.Context, id primitive.ObjectID) (types.Participant, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.Participant](ctx, dbService.collectionParticipants(), id)
}

func (dbService *RecruitmentDBService) GetParticipants(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Participant], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.Participant](ctx, dbService.collectionParticipants(), filter, sortByCreatedDesc, page, limit)
}

// UpdateParticipant changes descriptive fields. Status, study, site and sponsor cannot be changed here.
func (dbService *RecruitmentDBService) UpdateParticipant(ctx context.Context, id primitive.ObjectID, set bson.M) (types.Participant, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	for _, protected := range []string{"status", "studyId", "siteId", "sponsorId", "activityNotes", "files"} {
		delete(set, protected)
	}
	return updateAndGet[types.Participant](ctx, dbService.collectionParticipants(), bson.M{"_id": id}, set, nil)
}

// UpdateParticipantStatusIfUnchanged only writes the new status if the stored one still equals
// from. It returns mongo.ErrNoDocuments otherwise.
func (dbService *RecruitmentDBService) UpdateParticipantStatusIfUnchanged(ctx context.Context, id primitive.ObjectID, from types.ParticipantStatus, to types.ParticipantStatus) (types.Participant, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Participant](ctx, dbService.collectionParticipants(),
		bson.M{"_id": id, "status": from},
		bson.M{"status": to},
		nil,
	)
}

func (dbService *RecruitmentDBService) SetParticipantConsent(ctx context.Context, id primitive.ObjectID, consent types.Consent) (types.Participant, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Participant](ctx, dbService.collectionParticipants(), bson.M{"_id": id}, bson.M{"consent": consent}, nil)
}

func (dbService *RecruitmentDBService) addToParticipantArray(ctx context.Context, participantID primitive.ObjectID, field string, id primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	res, err := dbService.collectionParticipants().UpdateOne(ctx,
		bson.M{"_id": participantID},
		bson.M{"$addToSet": bson.M{field: id}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteParticipant removes the participant together with its notes and file records.
func (dbService *RecruitmentDBService) DeleteParticipant(ctx context.Context, id primitive.ObjectID) (CascadeResult, error) {
	result, err := dbService.deleteParticipantsWhere(ctx, bson.M{"_id": id})
	if err != nil {
		return result, err
	}
	if result.ParticipantsDeleted == 0 {
		return result, mongo.ErrNoDocuments
	}
	return result, nil
}

func (dbService *RecruitmentDBService) deleteParticipantsWhere(ctx context.Context, filter bson.M) (CascadeResult, error) {
	result := CascadeResult{Files: []types.FileInfo{}}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	participants, err := findAll[types.Participant](ctx, dbService.collectionParticipants(), filter,
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return result, err
	}
	if len(participants) == 0 {
		return result, nil
	}

	ids := make([]primitive.ObjectID, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	ownedBy := func(prefix string) bson.M {
		return bson.M{
			prefix + ".entityType": types.ENTITY_TYPE_PARTICIPANT,
			prefix + ".entityId":   bson.M{"$in": ids},
		}
	}

	files, err := findAll[types.FileInfo](ctx, dbService.collectionFiles(), ownedBy("owner"))
	if err != nil {
		return result, err
	}
	if _, err := dbService.collectionFiles().DeleteMany(ctx, ownedBy("owner")); err != nil {
		return result, err
	}
	if _, err := dbService.collectionNotes().DeleteMany(ctx, ownedBy("subject")); err != nil {
		return result, err
	}

	res, err := dbService.collectionParticipants().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return result, err
	}
	result.ParticipantsDeleted = res.DeletedCount
	result.Files = files
	return result, nil
}
