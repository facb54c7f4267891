package notify

import (
	"context"

	"github.com/raushankrgupta/temple-connect/models"
)

// Message is one outbound verification message.
type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
	HTML    string
	// Code is passed separately for providers that render it from a template.
	Code string
}

// Notifier defines the interface for all delivery providers
type Notifier interface {
	// CanSend checks if the notifier delivers over the given channel
	CanSend(channel models.Channel) bool
	// Send hands the message to the provider
	Send(ctx context.Context, msg Message) error
}
