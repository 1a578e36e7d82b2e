package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTriggerAuth_Verify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewTriggerAuth(string(hash))

	assert.NoError(t, auth.Verify("Bearer s3cret"))
	assert.ErrorIs(t, auth.Verify("Bearer wrong"), ErrInvalidToken)
	assert.ErrorIs(t, auth.Verify("s3cret"), ErrMissingToken)
	assert.ErrorIs(t, auth.Verify("Bearer "), ErrMissingToken)
	assert.ErrorIs(t, auth.Verify(""), ErrMissingToken)
}

func TestTriggerAuth_Disabled(t *testing.T) {
	auth := NewTriggerAuth("")

	assert.False(t, auth.Enabled())
	assert.ErrorIs(t, auth.Verify("Bearer anything"), ErrTriggerOff)
}

func TestHashToken(t *testing.T) {
	hash, err := HashToken("token-1")
	require.NoError(t, err)

	assert.NoError(t, NewTriggerAuth(hash).Verify("Bearer token-1"))
}

func TestRateLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpected()
	limiter := NewRateLimiter(db, 2, time.Minute)
	ctx := context.Background()

	mock.ExpectIncr("ratelimit:10.0.0.1").SetVal(1)
	mock.ExpectExpire("ratelimit:10.0.0.1", time.Minute).SetVal(true)
	mock.ExpectIncr("ratelimit:10.0.0.1").SetVal(2)
	mock.ExpectIncr("ratelimit:10.0.0.1").SetVal(3)

	assert.True(t, limiter.Allow(ctx, "10.0.0.1"))
	assert.True(t, limiter.Allow(ctx, "10.0.0.1"))
	assert.False(t, limiter.Allow(ctx, "10.0.0.1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_StoreErrorAllows(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpected()

	mock.ExpectIncr("ratelimit:10.0.0.2").SetErr(errors.New("down"))

	assert.True(t, NewRateLimiter(db, 1, time.Minute).Allow(context.Background(), "10.0.0.2"))
}

func TestIsSuspiciousUserAgent(t *testing.T) {
	assert.True(t, IsSuspiciousUserAgent("Googlebot/2.1"))
	assert.True(t, IsSuspiciousUserAgent("Scrapy scraper"))
	assert.False(t, IsSuspiciousUserAgent("curl/8.4.0"))
}
