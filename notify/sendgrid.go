package notify

import (
	"context"
	"fmt"

	"github.com/raushankrgupta/temple-connect/models"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGrid delivers email through the SendGrid v3 API.
type SendGrid struct {
	client      *sendgrid.Client
	fromName    string
	fromAddress string
}

func NewSendGrid(apiKey, fromName, fromAddress string) *SendGrid {
	return &SendGrid{
		client:      sendgrid.NewSendClient(apiKey),
		fromName:    fromName,
		fromAddress: fromAddress,
	}
}

// newSendGridWithHost points the client at another API host.
func newSendGridWithHost(apiKey, host, fromName, fromAddress string) *SendGrid {
	request := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
	request.Method = "POST"
	return &SendGrid{
		client:      &sendgrid.Client{Request: request},
		fromName:    fromName,
		fromAddress: fromAddress,
	}
}

func (s *SendGrid) CanSend(channel models.Channel) bool {
	return channel == models.ChannelEmail
}

// Send sends an email using SendGrid
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail(msg.Name, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		zap.S().Warnw("Error sending email", "to", msg.To, "error", err)
		return err
	}

	if response.StatusCode >= 400 {
		zap.S().Warnw("SendGrid API Error", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	zap.S().Infow("Email sent successfully", "to", msg.To, "status", response.StatusCode)
	return nil
}
