package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NoteType string

const (
	NOTE_TYPE_NOTE      NoteType = "note"
	NOTE_TYPE_TASK      NoteType = "task"
	NOTE_TYPE_CONSENT   NoteType = "consent"
	NOTE_TYPE_SCREENING NoteType = "screening"
	NOTE_TYPE_VISIT     NoteType = "visit"
)

func (t NoteType) IsValid() bool {
	switch t {
	case NOTE_TYPE_NOTE, NOTE_TYPE_TASK, NOTE_TYPE_CONSENT, NOTE_TYPE_SCREENING, NOTE_TYPE_VISIT:
		return true
	}
	return false
}

type Note struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AuthorID    primitive.ObjectID `bson:"authorId" json:"authorId"`
	Subject     EntityRef          `bson:"subject" json:"subject"`
	Content     string             `bson:"content" json:"content"`
	Type        NoteType           `bson:"type" json:"type"`
	IsCompleted bool               `bson:"isCompleted" json:"isCompleted"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	DueDate     *time.Time         `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func IsNoteSubjectType(t EntityType) bool {
	for _, st := range NoteSubjectTypes {
		if st == t {
			return true
		}
	}
	return false
}
