package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/require"
)

const (
	testRPID     = "auth.test"
	testOrigin   = "https://app.test"
	testSecret   = "test-secret"
	testLifetime = 24 * time.Hour
)

// recordingMetrics remembers what the services reported.
type recordingMetrics struct {
	mu       sync.Mutex
	attempts map[string]int
	issued   map[string]int
	links    map[string]int
	swept    map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		attempts: map[string]int{},
		issued:   map[string]int{},
		links:    map[string]int{},
		swept:    map[string]int64{},
	}
}

func (r *recordingMetrics) AuthAttempt(flow, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[flow+"/"+outcome]++
}

func (r *recordingMetrics) ChallengeIssued(flow string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued[flow]++
}

func (r *recordingMetrics) LinkEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[event]++
}

func (r *recordingMetrics) Swept(kind string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swept[kind] += n
}

type testEnv struct {
	store      *memStore
	clock      *testClock
	metrics    *recordingMetrics
	challenges *ChallengeService
	sessions   *SessionService
	auth       *AuthService
	links      *LinkService
	accounts   *AccountService
	sweeper    *Sweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	rm := &fakeRepoManager{store: store}
	db := newTxDB(t)
	clock := newTestClock()
	rec := newRecordingMetrics()
	logger := logging.Nop()
	verifier := cryptox.NewVerifier(false)

	cs := NewChallengeService(memChallenges{store})
	cs.now = clock.Now

	ss := NewSessionService(db, rm, testSecret, testLifetime)
	ss.now = clock.Now

	as := NewAuthService(db, rm, cs, ss, verifier, testRPID, rec, logger)
	as.now = clock.Now

	ls := NewLinkService(db, rm, verifier, testRPID, testOrigin+"/", rec, logger)
	ls.now = clock.Now

	sw := NewSweeper(db, rm, memChallenges{store}, 24*time.Hour, 0, rec, logger)
	sw.now = clock.Now

	return &testEnv{
		store:      store,
		clock:      clock,
		metrics:    rec,
		challenges: cs,
		sessions:   ss,
		auth:       as,
		links:      ls,
		accounts:   NewAccountService(db, rm),
		sweeper:    sw,
	}
}

func newKey(t *testing.T) *cryptox.SigningKey {
	t.Helper()
	k, err := cryptox.GenerateSigningKey()
	require.NoError(t, err)
	return k
}

func sign(t *testing.T, k *cryptox.SigningKey, message []byte) string {
	t.Helper()
	sig, err := k.Sign(message)
	require.NoError(t, err)
	return sig
}

// register runs the full registration flow for username with key.
func (e *testEnv) register(t *testing.T, username string, key *cryptox.SigningKey) *models.User {
	t.Helper()
	ctx := context.Background()

	rc, err := e.auth.RegisterInit(ctx, username)
	require.NoError(t, err)

	user, err := e.auth.RegisterComplete(ctx, RegisterRequest{
		ChallengeID:          rc.ChallengeID,
		Username:             username,
		PubKey:               key.PublicKeyHex(),
		Signature:            sign(t, key, cryptox.RegistrationMessage(rc.Challenge, rc.RelyingPartyID)),
		ClientChallenge:      rc.Challenge,
		ClientRelyingPartyID: rc.RelyingPartyID,
	})
	require.NoError(t, err)
	return user
}

// login runs the full login flow and returns the result.
func (e *testEnv) login(t *testing.T, username string, key *cryptox.SigningKey) (*LoginResult, error) {
	t.Helper()
	ctx := context.Background()

	lc, err := e.auth.LoginInit(ctx, username)
	require.NoError(t, err)

	return e.auth.LoginComplete(ctx, LoginRequest{
		ChallengeID: lc.ChallengeID,
		Username:    username,
		Signature:   sign(t, key, cryptox.LoginMessage(lc.Challenge, testRPID)),
		IPAddress:   "10.0.0.1",
		UserAgent:   "test-agent",
	})
}
