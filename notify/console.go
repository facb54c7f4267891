package notify

import (
	"context"
	"sync"

	"github.com/raushankrgupta/temple-connect/models"
	"go.uber.org/zap"
)

// Console writes messages to the log instead of delivering them. Used for
// local runs where no provider credentials are configured.
type Console struct {
	channels []models.Channel
}

func NewConsole(channels ...models.Channel) *Console {
	return &Console{channels: channels}
}

func (c *Console) CanSend(channel models.Channel) bool {
	for _, ch := range c.channels {
		if ch == channel {
			return true
		}
	}
	return false
}

func (c *Console) Send(_ context.Context, msg Message) error {
	zap.S().Infow("console notifier", "to", msg.To, "subject", msg.Subject, "code", msg.Code)
	return nil
}

// Recorder keeps every message it is asked to send. Err, when set, is
// returned from Send after the message is recorded.
type Recorder struct {
	mu       sync.Mutex
	Channel  models.Channel
	Err      error
	Messages []Message
}

func NewRecorder(channel models.Channel) *Recorder {
	return &Recorder{Channel: channel}
}

func (r *Recorder) CanSend(channel models.Channel) bool {
	return channel == r.Channel
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
	return r.Err
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.Messages...)
}

// Last returns the most recent message, or false when nothing was sent.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}
