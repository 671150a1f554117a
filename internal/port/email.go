package port

import "context"

// Attachment is one file attached to an outgoing email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailMessage is one outgoing email.
type EmailMessage struct {
	To          []string
	Subject     string
	TextBody    string
	Attachments []Attachment
}

// EmailSender delivers export output to intermediaries and accountants.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}
