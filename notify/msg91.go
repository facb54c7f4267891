package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/temple-connect/models"
	"go.uber.org/zap"
)

// MSG91 sends SMS codes through the MSG91 flow API. The code is passed as the
// "otp" template variable.
type MSG91 struct {
	baseURL    string
	authKey    string
	templateID string
	httpClient *http.Client
}

func NewMSG91(baseURL, authKey, templateID string) *MSG91 {
	return &MSG91{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authKey:    authKey,
		templateID: templateID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type msg91Recipient struct {
	Mobiles string `json:"mobiles"`
	OTP     string `json:"otp"`
}

type msg91Request struct {
	TemplateID string           `json:"template_id"`
	ShortURL   string           `json:"short_url"`
	Recipients []msg91Recipient `json:"recipients"`
}

type msg91Response struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (m *MSG91) CanSend(channel models.Channel) bool {
	return channel == models.ChannelPhone
}

func (m *MSG91) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg91Request{
		TemplateID: m.templateID,
		ShortURL:   "0",
		Recipients: []msg91Recipient{{Mobiles: strings.TrimPrefix(msg.To, "+"), OTP: msg.Code}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/v5/flow", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("authkey", m.authKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		zap.S().Warnw("Error sending sms", "to", msg.To, "error", err)
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		zap.S().Warnw("MSG91 API Error", "status", resp.StatusCode, "body", string(raw))
		return fmt.Errorf("failed to send sms, status code: %d", resp.StatusCode)
	}

	var parsed msg91Response
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Type == "error" {
		return fmt.Errorf("failed to send sms: %s", parsed.Message)
	}

	zap.S().Infow("SMS sent successfully", "to", msg.To, "status", resp.StatusCode)
	return nil
}
