package templates

import (
	"errors"
	"fmt"
	"os"
)

const (
	MESSAGE_TYPE_PROPOSAL_RECEIVED = "proposal-received"
	MESSAGE_TYPE_TASK_REMINDER     = "task-reminder"
)

type MessageTemplate struct {
	Subject string `yaml:"subject"`
	// Body is an html/template definition, or a path to a file holding one when BodyFile is set.
	Body     string `yaml:"body"`
	BodyFile string `yaml:"body_file"`
}

type TemplateSet map[string]MessageTemplate

var defaultTemplates = TemplateSet{
	MESSAGE_TYPE_PROPOSAL_RECEIVED: {
		Subject: "New recruitment proposal from {{.Company}}",
		Body: `<p>A new proposal was submitted on the website.</p>
<ul>
<li>Name: {{.Name}}</li>
<li>Email: {{.Email}}</li>
<li>Phone: {{.Phone}}</li>
<li>Company: {{.Company}}</li>
<li>Role: {{.Role}}</li>
{{if .StudyTitle}}<li>Study: {{.StudyTitle}}</li>{{end}}
{{if .TherapeuticArea}}<li>Therapeutic area: {{.TherapeuticArea}}</li>{{end}}
{{if .Timeline}}<li>Timeline: {{.Timeline}}</li>{{end}}
</ul>
{{if .Message}}<p>{{.Message}}</p>{{end}}`,
	},
	MESSAGE_TYPE_TASK_REMINDER: {
		Subject: "You have {{len .Tasks}} overdue task(s)",
		Body: `<p>Hello {{.Name}},</p>
<p>the following tasks are past their due date:</p>
<ul>
{{range .Tasks}}<li>{{.DueDate.Format "2006-01-02"}}: {{.Content}}</li>
{{end}}</ul>`,
	},
}

// WithDefaults returns the built-in templates with the given entries layered on top.
func WithDefaults(overrides TemplateSet) (TemplateSet, error) {
	set := make(TemplateSet, len(defaultTemplates)+len(overrides))
	for k, v := range defaultTemplates {
		set[k] = v
	}
	for k, v := range overrides {
		if v.BodyFile != "" {
			content, err := os.ReadFile(v.BodyFile)
			if err != nil {
				return nil, fmt.Errorf("reading template %s: %w", k, err)
			}
			v.Body = string(content)
		}
		if v.Subject == "" {
			v.Subject = set[k].Subject
		}
		set[k] = v
	}
	return set, set.CheckAllParsable()
}

// CheckAllParsable parses every subject and body so broken overrides are found at start-up.
func (s TemplateSet) CheckAllParsable() error {
	if len(s) == 0 {
		return errors.New("template set is empty")
	}
	for messageType, t := range s {
		if _, err := parseOnly(messageType+"-subject", t.Subject); err != nil {
			return fmt.Errorf("could not resolve subject for `%s`: %w", messageType, err)
		}
		if _, err := parseOnly(messageType, t.Body); err != nil {
			return fmt.Errorf("could not resolve template for `%s`: %w", messageType, err)
		}
	}
	return nil
}

// Render returns subject and HTML body of the given message type.
func (s TemplateSet) Render(messageType string, payload any) (subject string, content string, err error) {
	t, ok := s[messageType]
	if !ok {
		return "", "", fmt.Errorf("unknown message type %s", messageType)
	}
	subject, err = ResolveTemplate(messageType+"-subject", t.Subject, payload)
	if err != nil {
		return "", "", err
	}
	content, err = ResolveTemplate(messageType, t.Body, payload)
	if err != nil {
		return "", "", err
	}
	return subject, content, nil
}
