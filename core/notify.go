package core

import "context"

type (
	// Recipient of a Notification. Either channel may be empty.
	Recipient struct {
		Name  string
		Phone string
		Email string
	}

	Notification struct {
		To      Recipient
		Subject string
		Body    string
	}

	// Notifier is any service that can deliver a Notification to parents or staff.
	Notifier interface {
		Notify(ctx context.Context, n Notification) error
	}
)

func (n Notification) HasRecipient() bool { return n.To.Phone != "" || n.To.Email != "" }
