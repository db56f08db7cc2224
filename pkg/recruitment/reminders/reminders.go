package reminders

import (
	"errors"
	"fmt"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/messaging/templates"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	smtpclient "github.com/case-framework/recruitment-backend/pkg/smtp-client"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNoRecipient = errors.New("user has no email address")

type OverdueTask struct {
	NoteID  primitive.ObjectID
	Subject types.EntityRef
	Content string
	DueDate time.Time
}

// Reminder collects the overdue tasks of one author.
type Reminder struct {
	AuthorID primitive.ObjectID
	Tasks    []OverdueTask
}

// Collector groups overdue task notes by author, keeping the order in which authors were first seen.
type Collector struct {
	byAuthor map[primitive.ObjectID]int
	list     []Reminder
}

func NewCollector() *Collector {
	return &Collector{byAuthor: map[primitive.ObjectID]int{}}
}

// Add can be passed directly as callback to the overdue task query.
func (c *Collector) Add(note types.Note) error {
	if note.DueDate == nil || note.IsCompleted || note.Type != types.NOTE_TYPE_TASK {
		return nil
	}
	if note.AuthorID.IsZero() {
		return fmt.Errorf("task %s has no author", note.ID.Hex())
	}

	i, ok := c.byAuthor[note.AuthorID]
	if !ok {
		i = len(c.list)
		c.byAuthor[note.AuthorID] = i
		c.list = append(c.list, Reminder{AuthorID: note.AuthorID})
	}
	c.list[i].Tasks = append(c.list[i].Tasks, OverdueTask{
		NoteID:  note.ID,
		Subject: note.Subject,
		Content: note.Content,
		DueDate: *note.DueDate,
	})
	return nil
}

func (c *Collector) Reminders() []Reminder {
	return c.list
}

func (c *Collector) TaskCount() int {
	n := 0
	for _, r := range c.list {
		n += len(r.Tasks)
	}
	return n
}

type messagePayload struct {
	Name  string
	Tasks []OverdueTask
}

// Send renders the task reminder for user and hands it to the mailer.
func Send(mailer smtpclient.Mailer, tmpl templates.TemplateSet, user types.User, r Reminder) error {
	if user.Email == "" {
		return ErrNoRecipient
	}
	subject, content, err := tmpl.Render(templates.MESSAGE_TYPE_TASK_REMINDER, messagePayload{
		Name:  user.Name,
		Tasks: r.Tasks,
	})
	if err != nil {
		return err
	}
	return mailer.SendMail([]string{user.Email}, subject, content, nil)
}
