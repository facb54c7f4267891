package otp

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/notify"
	"github.com/raushankrgupta/temple-connect/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	email *notify.Recorder
	phone *notify.Recorder
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		email: notify.NewRecorder(models.ChannelEmail),
		phone: notify.NewRecorder(models.ChannelPhone),
		now:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	s := memstore.New()
	f.svc = NewService(s.OTPs, notify.NewDispatcher(f.email, f.phone), nil, Config{TTL: 10 * time.Minute, MaxAttempts: 3})
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func TestRandomCodeRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := randomCode()
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, codeMin)
		assert.LessOrEqual(t, n, codeMax)
	}
}

func TestFormatPurpose(t *testing.T) {
	assert.Equal(t, "Signup", formatPurpose("signup"))
	assert.Equal(t, "Password Reset", formatPurpose("password_reset"))
}

func TestIssueSendsOverChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "Asha")
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(10*time.Minute), code.ExpiresAt)

	msg, ok := f.email.Last()
	require.True(t, ok)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Asha", msg.Name)
	assert.Equal(t, code.Code, msg.Code)
	assert.Contains(t, msg.Text, "Signup")
	assert.Empty(t, f.phone.Sent())

	_, err = f.svc.Issue(ctx, "+919876543210", models.ChannelPhone, models.PurposeSignup, "Asha")
	require.NoError(t, err)
	assert.Len(t, f.phone.Sent(), 1)

	_, err = f.svc.Issue(ctx, "a@x.com", models.Channel("fax"), models.PurposeSignup, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestIssueKeepsCodeOnDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.email.Err = errors.New("sendgrid 503")

	code, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindDelivery, apperr.KindOf(err))
	require.NotNil(t, code)

	_, err = f.svc.Verify(ctx, "a@x.com", code.Code, models.ChannelEmail, models.PurposeSignup)
	assert.NoError(t, err, "stored code stays usable after a failed send")
}

func TestVerifyExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)

	for _, after := range []time.Duration{10 * time.Minute, 10*time.Minute + time.Second, 24 * time.Hour} {
		f.now = code.CreatedAt.Add(after)
		_, err := f.svc.Verify(ctx, "a@x.com", code.Code, models.ChannelEmail, models.PurposeSignup)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "after %s", after)
	}
}

func TestVerifyExactness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.NewCode = func() string { return "482913" }
	f.svc.maxTries = 0

	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)

	for _, wrong := range []string{"482914", "48291", "4829130", " 482913", "482913 ", "", "000000"} {
		_, err := f.svc.Verify(ctx, "a@x.com", wrong, models.ChannelEmail, models.PurposeSignup)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "submitted %q", wrong)
	}

	_, err = f.svc.Verify(ctx, "a@x.com", "482913", models.ChannelEmail, models.PurposeReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "purpose must match")

	got, err := f.svc.Verify(ctx, "a@x.com", "482913", models.ChannelEmail, models.PurposeSignup)
	require.NoError(t, err)
	assert.NotNil(t, got.ConsumedAt)

	_, err = f.svc.Verify(ctx, "a@x.com", "482913", models.ChannelEmail, models.PurposeSignup)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "a code is consumed by its first match")
}

func TestVerifyOnlyNewestCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codes := []string{"111111", "222222"}
	f.svc.NewCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, "a@x.com", "111111", models.ChannelEmail, models.PurposeSignup)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	_, err = f.svc.Verify(ctx, "a@x.com", "222222", models.ChannelEmail, models.PurposeSignup)
	assert.NoError(t, err)

	_, err = f.svc.Verify(ctx, "a@x.com", "111111", models.ChannelEmail, models.PurposeSignup)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "an older code stays dead after the newest is used")
}

func TestResetCodeNotReplayedAfterNewerUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codes := []string{"111111", "222222"}
	f.svc.NewCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeReset, "")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeReset, "")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, "a@x.com", "222222", models.ChannelEmail, models.PurposeReset)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, "a@x.com", "111111", models.ChannelEmail, models.PurposeReset)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerifyAttemptsExhaust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.NewCode = func() string { return "123456" }

	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Verify(ctx, "a@x.com", "999999", models.ChannelEmail, models.PurposeSignup)
		require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	}
	_, err = f.svc.Verify(ctx, "a@x.com", "123456", models.ChannelEmail, models.PurposeSignup)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "correct code after max attempts is dead")
}

func TestVerifyConcurrentConsumesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.NewCode = func() string { return "654321" }
	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Verify(ctx, "a@x.com", "654321", models.ChannelEmail, models.PurposeSignup); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

type countingObserver struct {
	issued   int
	verified map[string]int
}

func (o *countingObserver) Issued(models.Channel, models.Purpose) { o.issued++ }
func (o *countingObserver) Verified(result string)               { o.verified[result]++ }

func TestObserver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	obs := &countingObserver{verified: map[string]int{}}
	f.svc.SetObserver(obs)
	f.svc.NewCode = func() string { return "123123" }

	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeReset, "")
	require.NoError(t, err)
	_, _ = f.svc.Verify(ctx, "a@x.com", "000000", models.ChannelEmail, models.PurposeReset)
	_, _ = f.svc.Verify(ctx, "a@x.com", "123123", models.ChannelEmail, models.PurposeReset)
	_, _ = f.svc.Verify(ctx, "b@x.com", "123123", models.ChannelEmail, models.PurposeReset)

	assert.Equal(t, 1, obs.issued)
	assert.Equal(t, map[string]int{"mismatch": 1, "success": 1, "not_found": 1}, obs.verified)
}

func TestIssueRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lim := NewMemoryLimiter(15*time.Minute, 5, 30*time.Second)
	lim.Now = func() time.Time { return f.now }
	f.svc.limiter = lim

	_, err := f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, "a@x.com", models.ChannelEmail, models.PurposeSignup, "")
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))
	assert.Len(t, f.email.Sent(), 1, "a limited request sends nothing")
}
