package workflow

import (
	"errors"
	"fmt"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
)

var (
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrConcurrentTransition = errors.New("participant status was changed by another request")
)

type InvalidTransitionError struct {
	Current   types.ParticipantStatus
	Requested types.ParticipantStatus
	Allowed   []types.ParticipantStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Requested)
}
