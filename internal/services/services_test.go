package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/isdelr/referral-be/internal/auth"
	"github.com/isdelr/referral-be/internal/cache"
	"github.com/isdelr/referral-be/internal/database"
	"github.com/isdelr/referral-be/internal/models"
	"github.com/isdelr/referral-be/internal/store"
	"github.com/isdelr/referral-be/internal/testutil"
	"github.com/stretchr/testify/require"
)

type sentKey struct {
	email string
	key   string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentKey
	err  error
}

func (m *recordingMailer) SendResetKey(_ context.Context, email, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentKey{email: email, key: key})
	return m.err
}

func (m *recordingMailer) last() (sentKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentKey{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type testEnv struct {
	store   *store.UserStore
	cache   *cache.Cache
	redis   *miniredis.Miniredis
	codec   *auth.TokenCodec
	tasks   *TaskRunner
	mailer  *recordingMailer
	account *AccountService
	session *SessionService
	info    *InfoService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher := testutil.NewHasher(t)
	mr, rdb := testutil.NewRedis(t)

	env := &testEnv{
		store:  store.NewUserStore(testutil.NewSQLiteDB(t), database.DriverSQLite, hasher, 24*time.Hour),
		cache:  cache.New(rdb, 10*time.Minute),
		redis:  mr,
		codec:  testutil.NewTokenCodec(t, 30*time.Minute),
		tasks:  NewTaskRunner(5 * time.Second),
		mailer: &recordingMailer{},
	}
	env.account = NewAccountService(env.store, env.cache, env.codec, hasher, env.mailer, env.tasks)
	env.session = NewSessionService(env.codec, env.store, env.cache)
	env.info = NewInfoService(env.store, env.cache, nil, env.tasks)
	return env
}

func (e *testEnv) register(t *testing.T, username, code string) models.User {
	t.Helper()
	user, err := e.account.Register(context.Background(), models.Registration{
		Username:     username,
		Email:        username + "@example.com",
		Password:     "pw-" + username,
		ReferralCode: code,
	})
	require.NoError(t, err)
	e.tasks.Wait()
	return user
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	token, err := e.account.Login(context.Background(), username, "pw-"+username)
	require.NoError(t, err)
	e.tasks.Wait()
	return token.AccessToken
}
