package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StudyStatus string

const (
	STUDY_STATUS_RECRUITMENT StudyStatus = "Recruitment"
	STUDY_STATUS_ACTIVE      StudyStatus = "Active"
	STUDY_STATUS_CLOSE_OUT   StudyStatus = "CloseOut"
	STUDY_STATUS_CLOSED      StudyStatus = "Closed"
)

func (s StudyStatus) IsValid() bool {
	switch s {
	case STUDY_STATUS_RECRUITMENT, STUDY_STATUS_ACTIVE, STUDY_STATUS_CLOSE_OUT, STUDY_STATUS_CLOSED:
		return true
	}
	return false
}

// Study is a clinical trial run by a sponsor at one or more linked sites.
// EnrolledSubjects is only ever incremented by the enrolment automation.
type Study struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Title            string               `bson:"title" json:"title"`
	ProtocolID       string               `bson:"protocolId" json:"protocolId"`
	TherapeuticArea  string               `bson:"therapeuticArea" json:"therapeuticArea"`
	SponsorID        primitive.ObjectID   `bson:"sponsorId" json:"sponsorId"`
	Status           StudyStatus          `bson:"status" json:"status"`
	ExpectedSubjects int64                `bson:"expectedSubjects" json:"expectedSubjects"`
	EnrolledSubjects int64                `bson:"enrolledSubjects" json:"enrolledSubjects"`
	LinkedSites      []primitive.ObjectID `bson:"linkedSites" json:"linkedSites"`
	Milestones       []primitive.ObjectID `bson:"milestones" json:"milestones"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (s Study) HasLinkedSite(siteID primitive.ObjectID) bool {
	for _, id := range s.LinkedSites {
		if id == siteID {
			return true
		}
	}
	return false
}

// StatusCount is one row of a study's recruitment funnel.
type StatusCount struct {
	Status ParticipantStatus `bson:"_id" json:"status"`
	Count  int64             `bson:"count" json:"count"`
}
