package workflow

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory Tx whose Do rolls back every change when fn fails.
type memStore struct {
	participants map[primitive.ObjectID]types.Participant
	enrolled     map[primitive.ObjectID]int64
	notes        []types.Note
	logs         []types.EventLog

	// beforeStatusWrite runs right before the conditional status update
	beforeStatusWrite func(s *memStore)
	failNotes         bool
}

func newMemStore() *memStore {
	return &memStore{
		participants: map[primitive.ObjectID]types.Participant{},
		enrolled:     map[primitive.ObjectID]int64{},
	}
}

func (s *memStore) addParticipant(status types.ParticipantStatus) types.Participant {
	p := types.Participant{
		ID:        primitive.NewObjectID(),
		FirstName: "Jane",
		LastName:  "Doe",
		StudyID:   primitive.NewObjectID(),
		SiteID:    primitive.NewObjectID(),
		Status:    status,
	}
	s.participants[p.ID] = p
	s.enrolled[p.StudyID] = 0
	return p
}

type snapshot struct {
	participants map[primitive.ObjectID]types.Participant
	enrolled     map[primitive.ObjectID]int64
	notes        []types.Note
	logs         []types.EventLog
}

func (s *memStore) snapshot() snapshot {
	snap := snapshot{
		participants: map[primitive.ObjectID]types.Participant{},
		enrolled:     map[primitive.ObjectID]int64{},
		notes:        append([]types.Note{}, s.notes...),
		logs:         append([]types.EventLog{}, s.logs...),
	}
	for k, v := range s.participants {
		snap.participants[k] = v
	}
	for k, v := range s.enrolled {
		snap.enrolled[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.participants = snap.participants
	s.enrolled = snap.enrolled
	s.notes = snap.notes
	s.logs = snap.logs
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	snap := s.snapshot()
	if err := fn(ctx, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) GetParticipant(_ context.Context, id primitive.ObjectID) (types.Participant, error) {
	p, ok := s.participants[id]
	if !ok {
		return types.Participant{}, ErrParticipantNotFound
	}
	return p, nil
}

func (s *memStore) UpdateParticipantStatus(_ context.Context, id primitive.ObjectID, from types.ParticipantStatus, to types.ParticipantStatus) (types.Participant, error) {
	if s.beforeStatusWrite != nil {
		s.beforeStatusWrite(s)
	}
	p, ok := s.participants[id]
	if !ok || p.Status != from {
		return types.Participant{}, ErrConcurrentTransition
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	s.participants[id] = p
	return p, nil
}

func (s *memStore) CreateNote(_ context.Context, note types.Note) (types.Note, error) {
	if s.failNotes {
		return types.Note{}, context.DeadlineExceeded
	}
	note.ID = primitive.NewObjectID()
	s.notes = append(s.notes, note)
	return note, nil
}

func (s *memStore) IncrementEnrolledSubjects(_ context.Context, studyID primitive.ObjectID) error {
	s.enrolled[studyID]++
	return nil
}

func (s *memStore) CompleteOpenNotes(_ context.Context, subject types.EntityRef) (int64, error) {
	var n int64
	for i, note := range s.notes {
		if note.Subject == subject && !note.IsCompleted {
			s.notes[i].IsCompleted = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) AppendEventLog(_ context.Context, entry types.EventLog) error {
	entry.ID = primitive.NewObjectID()
	s.logs = append(s.logs, entry)
	return nil
}
