package workflow

import (
	"context"
	"testing"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestMachine(store *memStore) *StateMachine {
	return NewStateMachine(DefaultTransitions(), DefaultAutomations(), store)
}

func TestTransitionSucceedsIffAllowed(t *testing.T) {
	table := DefaultTransitions()
	actor := primitive.NewObjectID()

	for _, from := range types.ParticipantStatuses {
		for _, to := range types.ParticipantStatuses {
			store := newMemStore()
			p := store.addParticipant(from)
			sm := newTestMachine(store)

			updated, err := sm.Transition(context.Background(), p.ID, to, actor)
			if table.CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, updated.Status)
				continue
			}

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid, "%s -> %s", from, to)
			assert.Equal(t, table.Allowed(from), invalid.Allowed)
			assert.Equal(t, from, store.participants[p.ID].Status)
			assert.Empty(t, store.logs)
		}
	}
}

func TestTransitionFromTerminalReportsEmptyAllowedList(t *testing.T) {
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_COMPLETED)

	_, err := newTestMachine(store).Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_ENROLLED, primitive.NewObjectID())

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.NotNil(t, invalid.Allowed)
	assert.Empty(t, invalid.Allowed)
}

func TestTransitionUnknownParticipant(t *testing.T) {
	store := newMemStore()
	_, err := newTestMachine(store).Transition(context.Background(), primitive.NewObjectID(), types.PARTICIPANT_STATUS_SCREENING, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestEnrollmentIncrementsStudyCounterOnce(t *testing.T) {
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_SCREENING)
	before := store.enrolled[p.StudyID]

	updated, err := newTestMachine(store).Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_ENROLLED, primitive.NewObjectID())
	require.NoError(t, err)

	assert.Equal(t, types.PARTICIPANT_STATUS_ENROLLED, updated.Status)
	assert.Equal(t, before+1, store.enrolled[p.StudyID])
	require.Len(t, store.notes, 1)
	assert.Equal(t, types.NOTE_TYPE_NOTE, store.notes[0].Type)
}

func TestOnlyEnrollmentChangesEnrolledSubjects(t *testing.T) {
	steps := []types.ParticipantStatus{
		types.PARTICIPANT_STATUS_PENDING_CONSENT,
		types.PARTICIPANT_STATUS_SCREENING,
		types.PARTICIPANT_STATUS_ENROLLED,
		types.PARTICIPANT_STATUS_COMPLETED,
	}
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_POTENTIAL)
	sm := newTestMachine(store)

	for _, step := range steps {
		_, err := sm.Transition(context.Background(), p.ID, step, primitive.NewObjectID())
		require.NoError(t, err)

		want := int64(0)
		if step == types.PARTICIPANT_STATUS_ENROLLED || step == types.PARTICIPANT_STATUS_COMPLETED {
			want = 1
		}
		assert.Equal(t, want, store.enrolled[p.StudyID], "after %s", step)
	}
}

func TestAutomationNotes(t *testing.T) {
	tests := []struct {
		from     types.ParticipantStatus
		to       types.ParticipantStatus
		noteType types.NoteType
		content  string
	}{
		{types.PARTICIPANT_STATUS_POTENTIAL, types.PARTICIPANT_STATUS_PENDING_CONSENT, types.NOTE_TYPE_CONSENT, CONSENT_NOTE_CONTENT},
		{types.PARTICIPANT_STATUS_PENDING_CONSENT, types.PARTICIPANT_STATUS_SCREENING, types.NOTE_TYPE_SCREENING, SCREENING_NOTE_CONTENT},
	}
	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			store := newMemStore()
			p := store.addParticipant(tt.from)
			actor := primitive.NewObjectID()

			_, err := newTestMachine(store).Transition(context.Background(), p.ID, tt.to, actor)
			require.NoError(t, err)

			require.Len(t, store.notes, 1)
			note := store.notes[0]
			assert.Equal(t, tt.noteType, note.Type)
			assert.Equal(t, tt.content, note.Content)
			assert.Equal(t, actor, note.AuthorID)
			assert.Equal(t, types.ParticipantRef(p.ID), note.Subject)
			assert.False(t, note.IsCompleted)
		})
	}
}

func TestTerminalTransitionsCloseOpenNotes(t *testing.T) {
	for _, target := range []types.ParticipantStatus{types.PARTICIPANT_STATUS_COMPLETED, types.PARTICIPANT_STATUS_WITHDRAWN} {
		t.Run(string(target), func(t *testing.T) {
			store := newMemStore()
			p := store.addParticipant(types.PARTICIPANT_STATUS_ENROLLED)
			other := primitive.NewObjectID()
			store.notes = []types.Note{
				{ID: primitive.NewObjectID(), Subject: types.ParticipantRef(p.ID), Type: types.NOTE_TYPE_TASK},
				{ID: primitive.NewObjectID(), Subject: types.ParticipantRef(p.ID), Type: types.NOTE_TYPE_VISIT},
				{ID: primitive.NewObjectID(), Subject: types.ParticipantRef(other), Type: types.NOTE_TYPE_TASK},
			}

			_, err := newTestMachine(store).Transition(context.Background(), p.ID, target, primitive.NewObjectID())
			require.NoError(t, err)

			assert.True(t, store.notes[0].IsCompleted)
			assert.True(t, store.notes[1].IsCompleted)
			assert.False(t, store.notes[2].IsCompleted, "notes of other participants stay open")
		})
	}
}

func TestScreenFailClosesOpenNotes(t *testing.T) {
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_SCREENING)
	store.notes = []types.Note{{ID: primitive.NewObjectID(), Subject: types.ParticipantRef(p.ID), Type: types.NOTE_TYPE_SCREENING}}

	_, err := newTestMachine(store).Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_SCREEN_FAIL, primitive.NewObjectID())
	require.NoError(t, err)
	assert.True(t, store.notes[0].IsCompleted)
}

func TestTransitionWritesOneStateChangeLog(t *testing.T) {
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_SCREENING)
	actor := primitive.NewObjectID()

	_, err := newTestMachine(store).Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_SCREEN_FAIL, actor)
	require.NoError(t, err)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, types.EVENT_ACTION_STATE_CHANGE, entry.Action)
	assert.Equal(t, p.ID, entry.Subject.ID)
	assert.Equal(t, types.ENTITY_TYPE_PARTICIPANT, entry.Subject.Type)
	assert.Equal(t, actor, entry.ActorID)
	assert.Equal(t, string(types.PARTICIPANT_STATUS_SCREENING), entry.From)
	assert.Equal(t, string(types.PARTICIPANT_STATUS_SCREEN_FAIL), entry.To)
}

func TestLostRaceRunsNoSideEffects(t *testing.T) {
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_SCREENING)
	store.beforeStatusWrite = func(s *memStore) {
		// another request won the race
		other := s.participants[p.ID]
		other.Status = types.PARTICIPANT_STATUS_SCREEN_FAIL
		s.participants[p.ID] = other
	}

	_, err := newTestMachine(store).Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_ENROLLED, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrConcurrentTransition)

	assert.Equal(t, int64(0), store.enrolled[p.StudyID])
	assert.Empty(t, store.notes)
	assert.Empty(t, store.logs)
}

func TestFailingAutomationLeavesStatusUnchanged(t *testing.T) {
	store := newMemStore()
	store.failNotes = true
	p := store.addParticipant(types.PARTICIPANT_STATUS_POTENTIAL)

	_, err := newTestMachine(store).Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_PENDING_CONSENT, primitive.NewObjectID())
	require.Error(t, err)

	assert.Equal(t, types.PARTICIPANT_STATUS_POTENTIAL, store.participants[p.ID].Status)
	assert.Empty(t, store.logs)
}

func TestMachineWithDisqualification(t *testing.T) {
	store := newMemStore()
	p := store.addParticipant(types.PARTICIPANT_STATUS_ENROLLED)
	store.notes = []types.Note{{ID: primitive.NewObjectID(), Subject: types.ParticipantRef(p.ID), Type: types.NOTE_TYPE_TASK}}
	sm := NewStateMachine(TransitionsWithDisqualification(), DefaultAutomations(), store)

	updated, err := sm.Transition(context.Background(), p.ID, types.PARTICIPANT_STATUS_DISQUALIFIED, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Equal(t, types.PARTICIPANT_STATUS_DISQUALIFIED, updated.Status)
	assert.True(t, store.notes[0].IsCompleted)
	assert.True(t, sm.Table().IsTerminal(types.PARTICIPANT_STATUS_DISQUALIFIED))
}
