package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StateMachine moves participants along its transition table and runs the automation
// registered for the target status.
type StateMachine struct {
	table       TransitionTable
	automations Automations
	uow         UnitOfWork
}

func NewStateMachine(table TransitionTable, automations Automations, uow UnitOfWork) *StateMachine {
	autos := make(Automations, len(automations))
	for status, a := range automations {
		autos[status] = a
	}
	return &StateMachine{
		table:       table,
		automations: autos,
		uow:         uow,
	}
}

func (sm *StateMachine) Table() TransitionTable {
	return sm.table
}

// Transition validates and applies a status change. The conditional status write, the automation
// and the STATE_CHANGE event log are executed as one unit of work. The status is claimed before the
// automation runs, so a request losing a race never triggers side effects.
func (sm *StateMachine) Transition(
	ctx context.Context,
	participantID primitive.ObjectID,
	target types.ParticipantStatus,
	actorID primitive.ObjectID,
) (types.Participant, error) {
	var updated types.Participant

	err := sm.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		participant, err := tx.GetParticipant(ctx, participantID)
		if err != nil {
			return err
		}

		if err := sm.table.Validate(participant.Status, target); err != nil {
			return err
		}
		previous := participant.Status

		updated, err = tx.UpdateParticipantStatus(ctx, participantID, previous, target)
		if err != nil {
			return err
		}

		if automation, ok := sm.automations[target]; ok {
			if err := automation(ctx, AutomationContext{
				Participant: updated,
				ActorID:     actorID,
				Tx:          tx,
			}); err != nil {
				return fmt.Errorf("automation for %s failed: %w", target, err)
			}
		}

		entry := types.NewEventLog(actorID, types.EVENT_ACTION_STATE_CHANGE, types.ParticipantRef(participantID))
		entry.From = string(previous)
		entry.To = string(target)
		return tx.AppendEventLog(ctx, entry)
	})
	if err != nil {
		return types.Participant{}, err
	}

	slog.Info("participant status changed",
		slog.String("participantID", participantID.Hex()),
		slog.String("to", string(target)),
		slog.String("actorID", actorID.Hex()),
	)
	return updated, nil
}
