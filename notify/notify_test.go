package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherGetNotifier(t *testing.T) {
	email := NewRecorder(models.ChannelEmail)
	phone := NewRecorder(models.ChannelPhone)
	d := NewDispatcher(email, phone)

	n, err := d.GetNotifier(models.ChannelPhone)
	require.NoError(t, err)
	assert.Same(t, phone, n)

	_, err = NewDispatcher(email).GetNotifier(models.ChannelPhone)
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	d, err := Build(Options{Mode: "console"})
	require.NoError(t, err)
	n, err := d.GetNotifier(models.ChannelEmail)
	require.NoError(t, err)
	assert.IsType(t, &Console{}, n)

	_, err = Build(Options{Mode: "live"})
	assert.Error(t, err)

	d, err = Build(Options{Mode: "live", SendgridAPIKey: "SG.x", MSG91AuthKey: "k", MSG91TemplateID: "t", MSG91BaseURL: "https://control.msg91.com"})
	require.NoError(t, err)
	n, err = d.GetNotifier(models.ChannelPhone)
	require.NoError(t, err)
	assert.IsType(t, &MSG91{}, n)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(models.ChannelEmail)
	_, ok := r.Last()
	assert.False(t, ok)

	r.Err = errors.New("provider down")
	err := r.Send(context.Background(), Message{To: "a@x.com", Code: "123456"})
	assert.EqualError(t, err, "provider down")

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "123456", last.Code)
	assert.Len(t, r.Sent(), 1)
}

func TestMSG91Send(t *testing.T) {
	var got msg91Request
	var authKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/flow", r.URL.Path)
		authKey = r.Header.Get("authkey")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"type":"success","message":"queued"}`))
	}))
	defer srv.Close()

	m := NewMSG91(srv.URL+"/", "auth-key", "tmpl-1")
	require.NoError(t, m.Send(context.Background(), Message{To: "+919876543210", Code: "482913"}))

	assert.Equal(t, "auth-key", authKey)
	assert.Equal(t, "tmpl-1", got.TemplateID)
	require.Len(t, got.Recipients, 1)
	assert.Equal(t, "919876543210", got.Recipients[0].Mobiles)
	assert.Equal(t, "482913", got.Recipients[0].OTP)
}

func TestMSG91Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"type":"error","message":"invalid authkey"}`},
		{"api error", http.StatusOK, `{"type":"error","message":"template not approved"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewMSG91(srv.URL, "k", "t").Send(context.Background(), Message{To: "+911234567890", Code: "111111"})
			assert.Error(t, err)
		})
	}
}

func TestSendGridSend(t *testing.T) {
	var auth string
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := newSendGridWithHost("SG.key", srv.URL, "Temple Connect", "no-reply@templeconnect.org")
	require.True(t, s.CanSend(models.ChannelEmail))
	require.False(t, s.CanSend(models.ChannelPhone))

	err := s.Send(context.Background(), Message{To: "a@x.com", Name: "A", Subject: "Your code", Text: "123456", HTML: "<b>123456</b>"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer SG.key", auth)
	assert.Equal(t, "Your code", payload["subject"])
}

func TestSendGridRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"sender not verified"}]}`))
	}))
	defer srv.Close()

	err := newSendGridWithHost("SG.key", srv.URL, "T", "t@x.com").Send(context.Background(), Message{To: "a@x.com", Subject: "s", Text: "t", HTML: "h"})
	assert.Error(t, err)
}
