package recruitment

import (
	"context"
	"errors"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TransitionUnitOfWork adapts the DB service to the store contract of the participant workflow.
func (dbService *RecruitmentDBService) TransitionUnitOfWork() workflow.UnitOfWork {
	return transitionUnitOfWork{dbService: dbService}
}

type transitionUnitOfWork struct {
	dbService *RecruitmentDBService
}

func (u transitionUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx workflow.Tx) error) error {
	return u.dbService.RunInUnitOfWork(ctx, func(ctx context.Context) error {
		return fn(ctx, transitionTx{dbService: u.dbService})
	})
}

type transitionTx struct {
	dbService *RecruitmentDBService
}

func (tx transitionTx) GetParticipant(ctx context.Context, id primitive.ObjectID) (types.Participant, error) {
	p, err := tx.dbService.GetParticipantByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return p, workflow.ErrParticipantNotFound
	}
	return p, err
}

func (tx transitionTx) UpdateParticipantStatus(ctx context.Context, id primitive.ObjectID, from types.ParticipantStatus, to types.ParticipantStatus) (types.Participant, error) {
	p, err := tx.dbService.UpdateParticipantStatusIfUnchanged(ctx, id, from, to)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return p, workflow.ErrConcurrentTransition
	}
	return p, err
}

func (tx transitionTx) CreateNote(ctx context.Context, note types.Note) (types.Note, error) {
	return tx.dbService.CreateNote(ctx, note)
}

func (tx transitionTx) IncrementEnrolledSubjects(ctx context.Context, studyID primitive.ObjectID) error {
	return tx.dbService.IncrementEnrolledSubjects(ctx, studyID)
}

func (tx transitionTx) CompleteOpenNotes(ctx context.Context, subject types.EntityRef) (int64, error) {
	return tx.dbService.CompleteOpenNotes(ctx, subject)
}

func (tx transitionTx) AppendEventLog(ctx context.Context, entry types.EventLog) error {
	return tx.dbService.AppendEventLog(ctx, entry)
}
