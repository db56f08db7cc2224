package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProposalStatus string

const (
	PROPOSAL_STATUS_NEW       ProposalStatus = "New"
	PROPOSAL_STATUS_IN_REVIEW ProposalStatus = "In Review"
	PROPOSAL_STATUS_CONTACTED ProposalStatus = "Contacted"
	PROPOSAL_STATUS_QUALIFIED ProposalStatus = "Qualified"
	PROPOSAL_STATUS_REJECTED  ProposalStatus = "Rejected"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case PROPOSAL_STATUS_NEW, PROPOSAL_STATUS_IN_REVIEW, PROPOSAL_STATUS_CONTACTED, PROPOSAL_STATUS_QUALIFIED, PROPOSAL_STATUS_REJECTED:
		return true
	}
	return false
}

// Proposal is a lead captured by the public website. It is not linked to sponsors, sites or studies.
type Proposal struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string              `bson:"name" json:"name"`
	Email           string              `bson:"email" json:"email"`
	Phone           string              `bson:"phone" json:"phone"`
	Company         string              `bson:"company" json:"company"`
	Role            Role                `bson:"role" json:"role"`
	StudyTitle      string              `bson:"studyTitle,omitempty" json:"studyTitle,omitempty"`
	TherapeuticArea string              `bson:"therapeuticArea,omitempty" json:"therapeuticArea,omitempty"`
	Timeline        string              `bson:"timeline,omitempty" json:"timeline,omitempty"`
	Message         string              `bson:"message,omitempty" json:"message,omitempty"`
	Status          ProposalStatus      `bson:"status" json:"status"`
	AssignedTo      *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}
