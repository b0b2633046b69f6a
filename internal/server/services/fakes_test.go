package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/devices"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/linktokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "modernc.org/sqlite"
)

// memStore is an in-memory stand-in for the database. Every repository
// view shares one mutex so consume and predicate updates are atomic.
type memStore struct {
	mu         sync.Mutex
	users      map[string]models.User
	devices    map[string]models.Device
	challenges map[string]models.AuthChallenge
	sessions   map[string]models.Session
	links      map[string]models.LinkToken
	completed  map[string]bool
	fail       map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]models.User{},
		devices:    map[string]models.Device{},
		challenges: map[string]models.AuthChallenge{},
		sessions:   map[string]models.Session{},
		links:      map[string]models.LinkToken{},
		completed:  map[string]bool{},
		fail:       map[string]error{},
	}
}

// failOn makes the named operation (e.g. "users.GetByID") return err.
func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memStore) check(op string) error {
	return m.fail[op]
}

// users

type memUsers struct{ *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("users.Create"); err != nil {
		return err
	}
	for _, existing := range r.users {
		if existing.UserName == u.UserName {
			return common.ErrConflict
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("users.GetByUsername"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if u.UserName == username {
			u := u
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r memUsers) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	r.cascadeUser(id)
	return true, nil
}

func (r memUsers) DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, u := range r.users {
		if u.CreatedAt.Before(t) {
			r.cascadeUser(id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) cascadeUser(id string) {
	delete(m.users, id)
	for k, d := range m.devices {
		if d.UserID == id {
			m.cascadeDevice(k)
		}
	}
	for k, l := range m.links {
		if l.UserID == id {
			delete(m.links, k)
		}
	}
}

func (m *memStore) cascadeDevice(id string) {
	delete(m.devices, id)
	for k, s := range m.sessions {
		if s.DeviceID == id {
			delete(m.sessions, k)
		}
	}
}

// devices

type memDevices struct{ *memStore }

func (r memDevices) Create(ctx context.Context, d *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("devices.Create"); err != nil {
		return err
	}
	for _, existing := range r.devices {
		if existing.PubKey == d.PubKey {
			return common.ErrConflict
		}
	}
	r.devices[d.ID] = *d
	return nil
}

func (r memDevices) sorted(filter func(models.Device) bool) []models.Device {
	var out []models.Device
	for _, d := range r.devices {
		if filter(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r memDevices) ListByUser(ctx context.Context, userID string) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("devices.ListByUser"); err != nil {
		return nil, err
	}
	return r.sorted(func(d models.Device) bool { return d.UserID == userID }), nil
}

func (r memDevices) ListActiveByUser(ctx context.Context, userID string) ([]models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("devices.ListActiveByUser"); err != nil {
		return nil, err
	}
	return r.sorted(func(d models.Device) bool {
		return d.UserID == userID && d.Status == models.DeviceStatusActive
	}), nil
}

func (r memDevices) LatestPendingAfter(ctx context.Context, userID string, t time.Time) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sorted(func(d models.Device) bool {
		return d.UserID == userID && d.Status == models.DeviceStatusPending && d.CreatedAt.After(t)
	})
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}
	d := list[len(list)-1]
	return &d, nil
}

func (r memDevices) Activate(ctx context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("devices.Activate"); err != nil {
		return false, err
	}
	d, ok := r.devices[id]
	if !ok || d.UserID != userID || d.Status != models.DeviceStatusPending {
		return false, nil
	}
	d.Status = models.DeviceStatusActive
	r.devices[id] = d
	return true, nil
}

func (r memDevices) Delete(ctx context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok || d.UserID != userID {
		return false, nil
	}
	r.cascadeDevice(id)
	return true, nil
}

func (r memDevices) DeletePendingBefore(ctx context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, d := range r.devices {
		if d.Status == models.DeviceStatusPending && d.CreatedAt.Before(t) {
			r.cascadeDevice(id)
			n++
		}
	}
	return n, nil
}

// challenges

type memChallenges struct{ *memStore }

func (r memChallenges) Create(ctx context.Context, c *models.AuthChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("challenges.Create"); err != nil {
		return err
	}
	r.challenges[c.ID] = *c
	return nil
}

func (r memChallenges) Consume(ctx context.Context, id string) (*models.AuthChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("challenges.Consume"); err != nil {
		return nil, err
	}
	c, ok := r.challenges[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.challenges, id)
	return &c, nil
}

func (r memChallenges) List(ctx context.Context) ([]models.AuthChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("challenges.List"); err != nil {
		return nil, err
	}
	out := make([]models.AuthChallenge, 0, len(r.challenges))
	for _, c := range r.challenges {
		out = append(out, c)
	}
	return out, nil
}

func (r memChallenges) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("challenges.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.challenges {
		if c.Expired(now) {
			delete(r.challenges, id)
			n++
		}
	}
	return n, nil
}

// sessions

type memSessions struct{ *memStore }

func (r memSessions) Create(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("sessions.Create"); err != nil {
		return err
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r memSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("sessions.Get"); err != nil {
		return nil, err
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r memSessions) Delete(ctx context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(r.sessions, id)
	return true, nil
}

func (r memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// link tokens

type memLinks struct{ *memStore }

func (r memLinks) Create(ctx context.Context, l *models.LinkToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("links.Create"); err != nil {
		return err
	}
	r.links[l.ID] = *l
	return nil
}

func (r memLinks) GetByToken(ctx context.Context, token string) (*models.LinkToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.Token == token {
			l := l
			return &l, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memLinks) GetByID(ctx context.Context, id string) (*models.LinkToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &l, nil
}

func (r memLinks) SetChallenge(ctx context.Context, id, challenge string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok || r.completed[id] {
		return common.ErrorNotFound
	}
	l.Challenge = challenge
	r.links[id] = l
	return nil
}

func (r memLinks) Complete(ctx context.Context, id, challenge string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("links.Complete"); err != nil {
		return false, err
	}
	l, ok := r.links[id]
	if !ok || r.completed[id] || l.Challenge == "" || l.Challenge != challenge {
		return false, nil
	}
	l.Challenge = ""
	r.links[id] = l
	r.completed[id] = true
	return true, nil
}

func (r memLinks) Delete(ctx context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok || l.UserID != userID {
		return false, nil
	}
	delete(r.links, id)
	return true, nil
}

func (r memLinks) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.links {
		if l.Expired(now) {
			delete(r.links, id)
			n++
		}
	}
	return n, nil
}

// fakeRepoManager hands out views of one memStore regardless of DBTX.
type fakeRepoManager struct {
	store *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return memUsers{m.store} }
func (m *fakeRepoManager) Devices(dbx.DBTX) devices.Repository          { return memDevices{m.store} }
func (m *fakeRepoManager) Challenges(dbx.DBTX) challenges.Repository    { return memChallenges{m.store} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return memSessions{m.store} }
func (m *fakeRepoManager) LinkTokens(dbx.DBTX) linktokens.Repository    { return memLinks{m.store} }

// newTxDB returns an empty in-memory SQLite database. The fakes ignore
// it; it only gives dbx.WithTx something to begin and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
