package workflow

import (
	"context"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tx is the set of store operations used while applying a transition.
type Tx interface {
	// GetParticipant returns ErrParticipantNotFound if no participant has the id.
	GetParticipant(ctx context.Context, id primitive.ObjectID) (types.Participant, error)
	// UpdateParticipantStatus only writes if the stored status still equals from,
	// otherwise it returns ErrConcurrentTransition.
	UpdateParticipantStatus(ctx context.Context, id primitive.ObjectID, from types.ParticipantStatus, to types.ParticipantStatus) (types.Participant, error)
	CreateNote(ctx context.Context, note types.Note) (types.Note, error)
	IncrementEnrolledSubjects(ctx context.Context, studyID primitive.ObjectID) error
	CompleteOpenNotes(ctx context.Context, subject types.EntityRef) (int64, error)
	AppendEventLog(ctx context.Context, entry types.EventLog) error
}

// UnitOfWork runs fn so that either all of its writes are applied or none are.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
