package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/referral-be/internal/cache"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct{}

func (stubChecker) Verify(_ context.Context, email string) (map[string]any, error) {
	return map[string]any{"email": email, "status": "valid"}, nil
}

func TestInfoService_ReferralCodeByEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	_, err := env.info.ReferralCodeByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, "referral with email not found")

	_, err = env.info.ReferralCodeByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, "referral code not activated or expired")
	env.tasks.Wait()

	// Issuing a code evicts the stale email entry.
	grant, err := env.account.IssueReferralCode(ctx, alice, 1)
	require.NoError(t, err)
	env.tasks.Wait()

	info, err := env.info.ReferralCodeByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralCodeInfo{Email: "alice@example.com", ReferralCode: grant.ReferralCode}, info)
	env.tasks.Wait()
	assert.True(t, env.redis.Exists("email:alice@example.com"))

	// A cached snapshot is re-checked against the clock.
	env.info.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = env.info.ReferralCodeByEmail(ctx, "alice@example.com")
	assert.EqualError(t, err, "referral code not activated or expired")
}

func TestInfoService_ReferralCodeByEmail_Inactive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	_, err := env.account.IssueReferralCode(ctx, alice, 30)
	require.NoError(t, err)
	env.tasks.Wait()

	_, err = env.info.ReferralCodeByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	env.tasks.Wait()

	require.NoError(t, env.account.Deactivate(ctx, alice))

	_, err = env.info.ReferralCodeByEmail(ctx, "alice@example.com")
	assert.EqualError(t, err, "referral with email not found")
	env.tasks.Wait()
}

func TestInfoService_ReferralsOf(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	_, err := env.info.ReferralsOf(ctx, alice.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, "referrals not found")

	_, err = env.info.ReferralsOf(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	grant, err := env.account.IssueReferralCode(ctx, alice, 30)
	require.NoError(t, err)
	env.tasks.Wait()
	bob := env.register(t, "bob", grant.ReferralCode)

	infos, err := env.info.ReferralsOf(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, bob.ID, infos[0].ID)
	assert.Equal(t, "bob", infos[0].Username)
	env.tasks.Wait()

	assert.True(t, env.redis.Exists("referrals:"+alice.ID.String()))
	assert.Equal(t, cache.ReferralsTTL, env.redis.TTL("referrals:"+alice.ID.String()))
}

func TestInfoService_CheckEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.info.CheckEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, models.ErrUnavailable)

	env.info.checker = stubChecker{}
	report, err := env.info.CheckEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "valid", report["status"])
}
