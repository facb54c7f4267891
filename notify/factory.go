package notify

import (
	"fmt"

	"github.com/raushankrgupta/temple-connect/models"
)

// Dispatcher picks the notifier registered for a channel.
type Dispatcher struct {
	notifiers []Notifier
}

func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// GetNotifier returns the first notifier that can send over channel
func (d *Dispatcher) GetNotifier(channel models.Channel) (Notifier, error) {
	for _, n := range d.notifiers {
		if n.CanSend(channel) {
			return n, nil
		}
	}
	return nil, fmt.Errorf("no notifier found for channel: %s", channel)
}

// Options carries provider credentials for live delivery.
type Options struct {
	Mode             string
	SendgridAPIKey   string
	EmailFromName    string
	EmailFromAddress string
	MSG91AuthKey     string
	MSG91TemplateID  string
	MSG91BaseURL     string
}

// Build wires the notifiers for the configured mode. "live" uses SendGrid and
// MSG91; anything else logs messages to the console.
func Build(opts Options) (*Dispatcher, error) {
	if opts.Mode != "live" {
		return NewDispatcher(NewConsole(models.ChannelEmail, models.ChannelPhone)), nil
	}

	if opts.SendgridAPIKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}
	if opts.MSG91AuthKey == "" || opts.MSG91TemplateID == "" {
		return nil, fmt.Errorf("MSG91_AUTH_KEY and MSG91_TEMPLATE_ID are required for live sms")
	}
	return NewDispatcher(
		NewSendGrid(opts.SendgridAPIKey, opts.EmailFromName, opts.EmailFromAddress),
		NewMSG91(opts.MSG91BaseURL, opts.MSG91AuthKey, opts.MSG91TemplateID),
	), nil
}
