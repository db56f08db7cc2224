package workflow

import (
	"context"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CONSENT_NOTE_CONTENT    = "Consent form sent to participant"
	SCREENING_NOTE_CONTENT  = "Screening visit scheduled"
	ENROLLMENT_NOTE_CONTENT = "Participant enrolled in study"
)

type AutomationContext struct {
	Participant types.Participant
	ActorID     primitive.ObjectID
	Tx          Tx
}

// Automation is a side effect run after a transition into a status has been validated.
type Automation func(ctx context.Context, ac AutomationContext) error

type Automations map[types.ParticipantStatus]Automation

func DefaultAutomations() Automations {
	closeNotes := closeOpenNotes()
	return Automations{
		types.PARTICIPANT_STATUS_PENDING_CONSENT: createNote(types.NOTE_TYPE_CONSENT, CONSENT_NOTE_CONTENT),
		types.PARTICIPANT_STATUS_SCREENING:       createNote(types.NOTE_TYPE_SCREENING, SCREENING_NOTE_CONTENT),
		types.PARTICIPANT_STATUS_ENROLLED: chain(
			incrementEnrollment(),
			createNote(types.NOTE_TYPE_NOTE, ENROLLMENT_NOTE_CONTENT),
		),
		types.PARTICIPANT_STATUS_COMPLETED:    closeNotes,
		types.PARTICIPANT_STATUS_SCREEN_FAIL:  closeNotes,
		types.PARTICIPANT_STATUS_WITHDRAWN:    closeNotes,
		types.PARTICIPANT_STATUS_DISQUALIFIED: closeNotes,
	}
}

func createNote(noteType types.NoteType, content string) Automation {
	return func(ctx context.Context, ac AutomationContext) error {
		_, err := ac.Tx.CreateNote(ctx, types.Note{
			AuthorID: ac.ActorID,
			Subject:  types.ParticipantRef(ac.Participant.ID),
			Content:  content,
			Type:     noteType,
		})
		return err
	}
}

func incrementEnrollment() Automation {
	return func(ctx context.Context, ac AutomationContext) error {
		return ac.Tx.IncrementEnrolledSubjects(ctx, ac.Participant.StudyID)
	}
}

func closeOpenNotes() Automation {
	return func(ctx context.Context, ac AutomationContext) error {
		_, err := ac.Tx.CompleteOpenNotes(ctx, types.ParticipantRef(ac.Participant.ID))
		return err
	}
}

func chain(steps ...Automation) Automation {
	return func(ctx context.Context, ac AutomationContext) error {
		for _, step := range steps {
			if err := step(ctx, ac); err != nil {
				return err
			}
		}
		return nil
	}
}
