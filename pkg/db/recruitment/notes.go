package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateNote stores the note and, for participant notes, appends it to the participant's activity.
func (dbService *RecruitmentDBService) CreateNote(ctx context.Context, note types.Note) (types.Note, error) {
	if err := note.Subject.Validate(); err != nil {
		return note, err
	}
	if !types.IsNoteSubjectType(note.Subject.Type) {
		return note, types.ErrInvalidEntityRef
	}

	now := time.Now()
	note.ID = primitive.NewObjectID()
	note.CreatedAt = now
	note.UpdatedAt = now
	if note.Type == "" {
		note.Type = types.NOTE_TYPE_NOTE
	}

	insertCtx, cancel := dbService.getContext(ctx)
	defer cancel()
	if _, err := dbService.collectionNotes().InsertOne(insertCtx, note); err != nil {
		return note, err
	}

	if note.Subject.Is(types.ENTITY_TYPE_PARTICIPANT) {
		if err := dbService.addToParticipantArray(ctx, note.Subject.ID, "activityNotes", note.ID); err != nil {
			return note, err
		}
	}
	return note, nil
}

func (dbService *RecruitmentDBService) GetNoteByID(ctx context.Context, id primitive.ObjectID) (types.Note, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.Note](ctx, dbService.collectionNotes(), id)
}

func (dbService *RecruitmentDBService) GetNotesForSubject(ctx context.Context, subject types.EntityRef) ([]types.Note, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findAll[types.Note](ctx, dbService.collectionNotes(), refFilter("subject", subject),
		options.Find().SetSort(sortByCreatedDesc),
	)
}

// CompleteNote marks a single note of subject as completed.
func (dbService *RecruitmentDBService) CompleteNote(ctx context.Context, subject types.EntityRef, noteID primitive.ObjectID) (types.Note, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	filter := refFilter("subject", subject)
	filter["_id"] = noteID
	return updateAndGet[types.Note](ctx, dbService.collectionNotes(), filter,
		bson.M{"isCompleted": true, "completedAt": time.Now()},
		nil,
	)
}

// CompleteOpenNotes marks every open note of subject as completed and returns how many were changed.
func (dbService *RecruitmentDBService) CompleteOpenNotes(ctx context.Context, subject types.EntityRef) (int64, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	filter := refFilter("subject", subject)
	filter["isCompleted"] = false

	now := time.Now()
	res, err := dbService.collectionNotes().UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"isCompleted": true, "completedAt": now, "updatedAt": now},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindAndExecuteOnOverdueTasks calls fn for each open task note due before the reference time.
func (dbService *RecruitmentDBService) FindAndExecuteOnOverdueTasks(
	ctx context.Context,
	before time.Time,
	fn func(note types.Note) error,
) error {
	filter := bson.M{
		"type":        types.NOTE_TYPE_TASK,
		"isCompleted": false,
		"dueDate":     bson.M{"$lt": before},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "authorId", Value: 1}, {Key: "dueDate", Value: 1}}).
		SetNoCursorTimeout(dbService.noCursorTimeout)

	cursor, err := dbService.collectionNotes().Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var note types.Note
		if err := cursor.Decode(&note); err != nil {
			return err
		}
		if err := fn(note); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (dbService *RecruitmentDBService) deleteNotesWhere(ctx context.Context, filter bson.M) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_, err := dbService.collectionNotes().DeleteMany(ctx, filter)
	return err
}
