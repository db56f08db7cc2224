package smtp_client

// Mailer sends a single HTML message.
type Mailer interface {
	SendMail(to []string, subject string, htmlContent string, overrides *HeaderOverrides) error
}

type HeaderOverrides struct {
	From      string   `json:"from" yaml:"from"`
	Sender    string   `json:"sender" yaml:"sender"`
	ReplyTo   []string `json:"replyTo" yaml:"replyTo"`
	NoReplyTo bool     `json:"noReplyTo" yaml:"noReplyTo"`
}

type headers struct {
	From    string
	Sender  string
	ReplyTo []string
}

func resolveHeaders(servers SmtpServerList, overrides *HeaderOverrides) headers {
	h := headers{
		From:    servers.From,
		Sender:  servers.Sender,
		ReplyTo: servers.ReplyTo,
	}
	if overrides == nil {
		return h
	}
	if overrides.From != "" {
		h.From = overrides.From
	}
	if overrides.Sender != "" {
		h.Sender = overrides.Sender
	}
	if overrides.NoReplyTo {
		h.ReplyTo = []string{}
	} else if len(overrides.ReplyTo) > 0 {
		h.ReplyTo = overrides.ReplyTo
	}
	return h
}
