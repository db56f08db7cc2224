package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ParticipantStatus string

const (
	PARTICIPANT_STATUS_POTENTIAL       ParticipantStatus = "Potential"
	PARTICIPANT_STATUS_PENDING_CONSENT ParticipantStatus = "PendingConsent"
	PARTICIPANT_STATUS_SCREENING       ParticipantStatus = "Screening"
	PARTICIPANT_STATUS_ENROLLED        ParticipantStatus = "Enrolled"
	PARTICIPANT_STATUS_COMPLETED       ParticipantStatus = "Completed"
	PARTICIPANT_STATUS_SCREEN_FAIL     ParticipantStatus = "ScreenFail"
	PARTICIPANT_STATUS_WITHDRAWN       ParticipantStatus = "Withdrawn"
	PARTICIPANT_STATUS_DISQUALIFIED    ParticipantStatus = "Disqualified"
)

// ParticipantStatuses is the persisted enum, in funnel order.
var ParticipantStatuses = []ParticipantStatus{
	PARTICIPANT_STATUS_POTENTIAL,
	PARTICIPANT_STATUS_PENDING_CONSENT,
	PARTICIPANT_STATUS_SCREENING,
	PARTICIPANT_STATUS_ENROLLED,
	PARTICIPANT_STATUS_COMPLETED,
	PARTICIPANT_STATUS_SCREEN_FAIL,
	PARTICIPANT_STATUS_WITHDRAWN,
	PARTICIPANT_STATUS_DISQUALIFIED,
}

func (s ParticipantStatus) IsValid() bool {
	for _, st := range ParticipantStatuses {
		if st == s {
			return true
		}
	}
	return false
}

type Consent struct {
	FileURL    string     `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	ReceivedAt *time.Time `bson:"receivedAt,omitempty" json:"receivedAt,omitempty"`
}

type ParticipantAttributes struct {
	DOB   string `bson:"dob,omitempty" json:"dob,omitempty"`
	Sex   string `bson:"sex,omitempty" json:"sex,omitempty"`
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Participant is a recruitment lead owned jointly by a study and a site. SponsorID is copied
// from the study on creation and only used to scope list queries.
type Participant struct {
	ID            primitive.ObjectID    `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName     string                `bson:"firstName" json:"firstName"`
	LastName      string                `bson:"lastName" json:"lastName"`
	Email         string                `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string                `bson:"phone,omitempty" json:"phone,omitempty"`
	StudyID       primitive.ObjectID    `bson:"studyId" json:"studyId"`
	SiteID        primitive.ObjectID    `bson:"siteId" json:"siteId"`
	SponsorID     primitive.ObjectID    `bson:"sponsorId" json:"sponsorId"`
	Status        ParticipantStatus     `bson:"status" json:"status"`
	Consent       Consent               `bson:"consent" json:"consent"`
	Attributes    ParticipantAttributes `bson:"attributes" json:"attributes"`
	ActivityNotes []primitive.ObjectID  `bson:"activityNotes" json:"activityNotes"`
	Files         []primitive.ObjectID  `bson:"files" json:"files"`
	CreatedAt     time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// IsLead reports whether the participant has not been contacted yet.
func (p Participant) IsLead() bool {
	return p.Status == PARTICIPANT_STATUS_POTENTIAL
}
