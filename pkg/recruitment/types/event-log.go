package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventAction string

const (
	EVENT_ACTION_CREATE       EventAction = "CREATE"
	EVENT_ACTION_UPDATE       EventAction = "UPDATE"
	EVENT_ACTION_DELETE       EventAction = "DELETE"
	EVENT_ACTION_STATE_CHANGE EventAction = "STATE_CHANGE"
	EVENT_ACTION_LOGIN        EventAction = "LOGIN"
	EVENT_ACTION_FILE_UPLOAD  EventAction = "FILE_UPLOAD"
)

// EventLog is an append-only audit record. It is never updated or removed.
type EventLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ActorID   primitive.ObjectID `bson:"actorId" json:"actorId"`
	Action    EventAction        `bson:"action" json:"action"`
	Subject   EntityRef          `bson:"subject" json:"subject"`
	From      string             `bson:"from,omitempty" json:"from,omitempty"`
	To        string             `bson:"to,omitempty" json:"to,omitempty"`
	Meta      map[string]any     `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

func NewEventLog(actorID primitive.ObjectID, action EventAction, subject EntityRef) EventLog {
	return EventLog{
		ActorID: actorID,
		Action:  action,
		Subject: subject,
	}
}

func (e EventLog) WithMeta(key string, value any) EventLog {
	meta := make(map[string]any, len(e.Meta)+1)
	for k, v := range e.Meta {
		meta[k] = v
	}
	meta[key] = value
	e.Meta = meta
	return e
}
