package workflow

import (
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
)

// TransitionTable is an immutable adjacency list of participant statuses.
// A status with no outgoing edges (or missing from the table) is terminal.
type TransitionTable struct {
	next map[types.ParticipantStatus][]types.ParticipantStatus
}

func NewTransitionTable(edges map[types.ParticipantStatus][]types.ParticipantStatus) TransitionTable {
	next := make(map[types.ParticipantStatus][]types.ParticipantStatus, len(edges))
	for from, targets := range edges {
		cp := make([]types.ParticipantStatus, len(targets))
		copy(cp, targets)
		next[from] = cp
	}
	return TransitionTable{next: next}
}

// DefaultTransitions is the recruitment funnel without back-edges.
func DefaultTransitions() TransitionTable {
	return NewTransitionTable(map[types.ParticipantStatus][]types.ParticipantStatus{
		types.PARTICIPANT_STATUS_POTENTIAL:       {types.PARTICIPANT_STATUS_PENDING_CONSENT},
		types.PARTICIPANT_STATUS_PENDING_CONSENT: {types.PARTICIPANT_STATUS_SCREENING},
		types.PARTICIPANT_STATUS_SCREENING:       {types.PARTICIPANT_STATUS_ENROLLED, types.PARTICIPANT_STATUS_SCREEN_FAIL},
		types.PARTICIPANT_STATUS_ENROLLED:        {types.PARTICIPANT_STATUS_COMPLETED, types.PARTICIPANT_STATUS_WITHDRAWN},
		types.PARTICIPANT_STATUS_COMPLETED:       {},
		types.PARTICIPANT_STATUS_SCREEN_FAIL:     {},
		types.PARTICIPANT_STATUS_WITHDRAWN:       {},
	})
}

// TransitionsWithDisqualification extends the default funnel with a terminal Disqualified
// state reachable from Screening and Enrolled.
func TransitionsWithDisqualification() TransitionTable {
	return NewTransitionTable(map[types.ParticipantStatus][]types.ParticipantStatus{
		types.PARTICIPANT_STATUS_POTENTIAL:       {types.PARTICIPANT_STATUS_PENDING_CONSENT},
		types.PARTICIPANT_STATUS_PENDING_CONSENT: {types.PARTICIPANT_STATUS_SCREENING},
		types.PARTICIPANT_STATUS_SCREENING:       {types.PARTICIPANT_STATUS_ENROLLED, types.PARTICIPANT_STATUS_SCREEN_FAIL, types.PARTICIPANT_STATUS_DISQUALIFIED},
		types.PARTICIPANT_STATUS_ENROLLED:        {types.PARTICIPANT_STATUS_COMPLETED, types.PARTICIPANT_STATUS_WITHDRAWN, types.PARTICIPANT_STATUS_DISQUALIFIED},
		types.PARTICIPANT_STATUS_COMPLETED:       {},
		types.PARTICIPANT_STATUS_SCREEN_FAIL:     {},
		types.PARTICIPANT_STATUS_WITHDRAWN:       {},
		types.PARTICIPANT_STATUS_DISQUALIFIED:    {},
	})
}

// Allowed returns the legal next states of from. The result is a copy and never nil.
func (t TransitionTable) Allowed(from types.ParticipantStatus) []types.ParticipantStatus {
	targets := t.next[from]
	cp := make([]types.ParticipantStatus, len(targets))
	copy(cp, targets)
	return cp
}

func (t TransitionTable) CanTransition(from, to types.ParticipantStatus) bool {
	for _, target := range t.next[from] {
		if target == to {
			return true
		}
	}
	return false
}

func (t TransitionTable) IsTerminal(s types.ParticipantStatus) bool {
	return len(t.next[s]) == 0
}

// Validate returns an *InvalidTransitionError if to is not reachable from from.
func (t TransitionTable) Validate(from, to types.ParticipantStatus) error {
	if t.CanTransition(from, to) {
		return nil
	}
	return &InvalidTransitionError{
		Current:   from,
		Requested: to,
		Allowed:   t.Allowed(from),
	}
}
