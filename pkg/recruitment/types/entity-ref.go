package types

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EntityType string

const (
	ENTITY_TYPE_SPONSOR     EntityType = "Sponsor"
	ENTITY_TYPE_SITE        EntityType = "Site"
	ENTITY_TYPE_STUDY       EntityType = "Study"
	ENTITY_TYPE_PARTICIPANT EntityType = "Participant"
	ENTITY_TYPE_USER        EntityType = "User"
	ENTITY_TYPE_NOTE        EntityType = "Note"
	ENTITY_TYPE_FILE        EntityType = "File"
	ENTITY_TYPE_PROPOSAL    EntityType = "Proposal"
)

var knownEntityTypes = map[EntityType]bool{
	ENTITY_TYPE_SPONSOR:     true,
	ENTITY_TYPE_SITE:        true,
	ENTITY_TYPE_STUDY:       true,
	ENTITY_TYPE_PARTICIPANT: true,
	ENTITY_TYPE_USER:        true,
	ENTITY_TYPE_NOTE:        true,
	ENTITY_TYPE_FILE:        true,
	ENTITY_TYPE_PROPOSAL:    true,
}

// NoteSubjectTypes lists the entity kinds a note can be attached to.
var NoteSubjectTypes = []EntityType{
	ENTITY_TYPE_STUDY,
	ENTITY_TYPE_SITE,
	ENTITY_TYPE_PARTICIPANT,
}

var ErrInvalidEntityRef = errors.New("invalid entity reference")

func (t EntityType) IsValid() bool {
	return knownEntityTypes[t]
}

// Folder is the lower-case plural used for storage paths, e.g. "participants".
func (t EntityType) Folder() string {
	switch t {
	case ENTITY_TYPE_STUDY:
		return "studies"
	default:
		return lowerFirst(string(t)) + "s"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// EntityRef points to a document of one of the known entity kinds. Notes, event logs and files
// use it instead of a typed reference so they can be attached to several owner kinds.
type EntityRef struct {
	Type EntityType         `bson:"entityType" json:"entityType"`
	ID   primitive.ObjectID `bson:"entityId" json:"entityId"`
}

func SponsorRef(id primitive.ObjectID) EntityRef     { return EntityRef{Type: ENTITY_TYPE_SPONSOR, ID: id} }
func SiteRef(id primitive.ObjectID) EntityRef        { return EntityRef{Type: ENTITY_TYPE_SITE, ID: id} }
func StudyRef(id primitive.ObjectID) EntityRef       { return EntityRef{Type: ENTITY_TYPE_STUDY, ID: id} }
func ParticipantRef(id primitive.ObjectID) EntityRef { return EntityRef{Type: ENTITY_TYPE_PARTICIPANT, ID: id} }
func UserRef(id primitive.ObjectID) EntityRef        { return EntityRef{Type: ENTITY_TYPE_USER, ID: id} }
func NoteRef(id primitive.ObjectID) EntityRef        { return EntityRef{Type: ENTITY_TYPE_NOTE, ID: id} }
func FileRef(id primitive.ObjectID) EntityRef        { return EntityRef{Type: ENTITY_TYPE_FILE, ID: id} }
func ProposalRef(id primitive.ObjectID) EntityRef    { return EntityRef{Type: ENTITY_TYPE_PROPOSAL, ID: id} }

// ParseEntityRef builds a reference from an entity type name and a hex id.
func ParseEntityRef(entityType string, hexID string) (EntityRef, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return EntityRef{}, fmt.Errorf("%w: %s", ErrInvalidEntityRef, err.Error())
	}
	ref := EntityRef{Type: EntityType(entityType), ID: id}
	return ref, ref.Validate()
}

func (r EntityRef) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidEntityRef, r.Type)
	}
	if r.ID.IsZero() {
		return fmt.Errorf("%w: empty id", ErrInvalidEntityRef)
	}
	return nil
}

func (r EntityRef) Is(t EntityType) bool {
	return r.Type == t
}

func (r EntityRef) String() string {
	return string(r.Type) + "/" + r.ID.Hex()
}
