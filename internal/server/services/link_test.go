package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startLink registers alice and issues a link for her.
func startLink(t *testing.T, env *testEnv) (*models.User, *LinkInvite) {
	t.Helper()
	owner := env.register(t, "alice", newKey(t))

	invite, err := env.links.InitLink(context.Background(), owner.ID)
	require.NoError(t, err)
	return owner, invite
}

// joinLink runs the new-device side of a link with key.
func joinLink(t *testing.T, env *testEnv, invite *LinkInvite, key *cryptox.SigningKey) *models.Device {
	t.Helper()
	ctx := context.Background()

	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	device, err := env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: key.PublicKeyHex(),
		Signature: sign(t, key, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	require.NoError(t, err)
	return device
}

func TestLinkService_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)

	assert.Equal(t, testOrigin+"/connect-device?token="+invite.Token, invite.URL)
	assert.Len(t, invite.Token, 2*linkTokenBytes)
	assert.Equal(t, env.clock.Now().Add(LinkTTL), invite.ExpiresAt)

	status, err := env.links.CheckLinkStatus(ctx, invite.LinkID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkWaiting, status.Status)
	assert.Nil(t, status.Device)

	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, owner.Salt, info.Salt)
	assert.Equal(t, testRPID, info.RelyingPartyID)

	newDevice := newKey(t)
	env.clock.Advance(time.Second)
	device, err := env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: newDevice.PublicKeyHex(),
		Signature: sign(t, newDevice, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusPending, device.Status)
	assert.Equal(t, linkDeviceName, device.Name)

	_, err = env.login(t, "alice", newDevice)
	assert.ErrorIs(t, err, common.ErrBadSignature, "pending device cannot log in")

	status, err = env.links.CheckLinkStatus(ctx, invite.LinkID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkNeedsReview, status.Status)
	require.NotNil(t, status.Device)
	assert.Equal(t, device.ID, status.Device.ID)

	require.NoError(t, env.links.ApproveDevice(ctx, device.ID, invite.LinkID, owner.ID))
	assert.Empty(t, env.store.links)

	res, err := env.login(t, "alice", newDevice)
	require.NoError(t, err)
	assert.Equal(t, device.ID, res.DeviceID)

	assert.Equal(t, 1, env.metrics.links["issued"])
	assert.Equal(t, 1, env.metrics.links["device_pending"])
	assert.Equal(t, 1, env.metrics.links["approved"])
}

func TestLinkService_ReissuedChallengeInvalidatesAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, invite := startLink(t, env)
	key := newKey(t)

	first, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)
	second, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)
	require.NotEqual(t, first.Challenge, second.Challenge)

	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: key.PublicKeyHex(),
		Signature: sign(t, key, cryptox.LinkMessage(first.Challenge, invite.Token)),
		Challenge: first.Challenge,
	})
	assert.ErrorIs(t, err, common.ErrChallengeMismatch)

	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: key.PublicKeyHex(),
		Signature: sign(t, key, cryptox.LinkMessage(first.Challenge, invite.Token)),
		Challenge: second.Challenge,
	})
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
	assert.Equal(t, 1, env.metrics.links["rejected"])
	assert.Contains(t, env.store.links, invite.LinkID, "link survives failed attempts")
}

func TestLinkService_CompleteWithoutInfo(t *testing.T) {
	env := newTestEnv(t)
	_, invite := startLink(t, env)
	key := newKey(t)

	_, err := env.links.CompleteLink(context.Background(), CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: key.PublicKeyHex(),
		Signature: sign(t, key, cryptox.LinkMessage("", invite.Token)),
	})
	assert.ErrorIs(t, err, common.ErrGone)
}

func TestLinkService_UnknownAndExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)

	_, err := env.links.GetLinkInfo(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{Token: "unknown"})
	assert.ErrorIs(t, err, common.ErrGone)

	_, err = env.links.CheckLinkStatus(ctx, "unknown", owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)

	env.clock.Advance(LinkTTL)

	_, err = env.links.GetLinkInfo(ctx, invite.Token)
	assert.ErrorIs(t, err, common.ErrGone)

	key := newKey(t)
	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: key.PublicKeyHex(),
		Signature: sign(t, key, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	assert.ErrorIs(t, err, common.ErrGone)

	_, err = env.links.CheckLinkStatus(ctx, invite.LinkID, owner.ID)
	assert.ErrorIs(t, err, common.ErrGone)
}

func TestLinkService_OwnerDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)

	// keep the link row but drop the owner
	link := env.store.links[invite.LinkID]
	require.NoError(t, env.accounts.DeleteAccount(ctx, owner.ID))
	env.store.links[invite.LinkID] = link

	_, err := env.links.GetLinkInfo(ctx, invite.Token)
	assert.ErrorIs(t, err, common.ErrGone)
}

func TestLinkService_StatusOfForeignLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, invite := startLink(t, env)
	mallory := env.register(t, "mallory", newKey(t))

	_, err := env.links.CheckLinkStatus(ctx, invite.LinkID, mallory.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLinkService_ApproveRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)
	device := joinLink(t, env, invite, newKey(t))
	mallory := env.register(t, "mallory", newKey(t))

	err := env.links.ApproveDevice(ctx, device.ID, invite.LinkID, mallory.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound, "only the owner approves")

	err = env.links.ApproveDevice(ctx, "missing", invite.LinkID, owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, env.links.ApproveDevice(ctx, device.ID, invite.LinkID, owner.ID))

	err = env.links.ApproveDevice(ctx, device.ID, invite.LinkID, owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound, "already active")
}

func TestLinkService_ConcurrentApprovals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)
	device := joinLink(t, env, invite, newKey(t))

	const workers = 8
	var wins, notFound atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := env.links.ApproveDevice(ctx, device.ID, invite.LinkID, owner.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, common.ErrorNotFound):
				notFound.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), notFound.Load())
	assert.Equal(t, models.DeviceStatusActive, env.store.devices[device.ID].Status)
}

func TestLinkService_LinkCompletesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)

	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)

	first := newKey(t)
	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: first.PublicKeyHex(),
		Signature: sign(t, first, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	require.NoError(t, err)

	second := newKey(t)
	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: second.PublicKeyHex(),
		Signature: sign(t, second, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	assert.ErrorIs(t, err, common.ErrGone, "challenge already used")

	_, err = env.links.GetLinkInfo(ctx, invite.Token)
	assert.ErrorIs(t, err, common.ErrGone, "completed link issues no new challenge")

	status, err := env.links.CheckLinkStatus(ctx, invite.LinkID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkNeedsReview, status.Status)
	assert.Equal(t, 1, env.metrics.links["device_pending"])
}

func TestLinkService_ConcurrentCompletions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, invite := startLink(t, env)

	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)

	const workers = 8
	reqs := make([]CompleteLinkRequest, workers)
	for i := range reqs {
		key := newKey(t)
		reqs[i] = CompleteLinkRequest{
			Token:     invite.Token,
			NewPubKey: key.PublicKeyHex(),
			Signature: sign(t, key, cryptox.LinkMessage(info.Challenge, invite.Token)),
			Challenge: info.Challenge,
		}
	}

	var wins, gone atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(req CompleteLinkRequest) {
			defer wg.Done()
			<-start
			_, err := env.links.CompleteLink(ctx, req)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, common.ErrGone):
				gone.Add(1)
			}
		}(reqs[i])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), gone.Load())

	pending := 0
	for _, d := range env.store.devices {
		if d.Status == models.DeviceStatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
}

func TestLinkService_ApproveNeedsOwnLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, invite := startLink(t, env)
	device := joinLink(t, env, invite, newKey(t))

	mallory := env.register(t, "mallory", newKey(t))
	foreign, err := env.links.InitLink(ctx, mallory.ID)
	require.NoError(t, err)

	err = env.links.ApproveDevice(ctx, device.ID, "missing", owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound, "unknown link")

	err = env.links.ApproveDevice(ctx, device.ID, foreign.LinkID, owner.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound, "link of another user")

	assert.Equal(t, models.DeviceStatusPending, env.store.devices[device.ID].Status)
	assert.Contains(t, env.store.links, foreign.LinkID)

	require.NoError(t, env.links.ApproveDevice(ctx, device.ID, invite.LinkID, owner.ID))
}

func TestLinkService_CompressedKeyStoredXOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, invite := startLink(t, env)
	key := newKey(t)

	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)

	device, err := env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: key.CompressedPublicKeyHex(),
		Signature: sign(t, key, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKeyHex(), device.PubKey)
	assert.Equal(t, key.PublicKeyHex(), env.store.devices[device.ID].PubKey)
}

func TestLinkService_DuplicatePubKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ownerKey := newKey(t)
	owner := env.register(t, "alice", ownerKey)

	invite, err := env.links.InitLink(ctx, owner.ID)
	require.NoError(t, err)
	info, err := env.links.GetLinkInfo(ctx, invite.Token)
	require.NoError(t, err)

	_, err = env.links.CompleteLink(ctx, CompleteLinkRequest{
		Token:     invite.Token,
		NewPubKey: ownerKey.PublicKeyHex(),
		Signature: sign(t, ownerKey, cryptox.LinkMessage(info.Challenge, invite.Token)),
		Challenge: info.Challenge,
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLinkService_InitStorageError(t *testing.T) {
	env := newTestEnv(t)
	env.store.failOn("links.Create", errors.New("db down"))

	_, err := env.links.InitLink(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrStorage)
}
