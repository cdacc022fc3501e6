package registration

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/app/storage/memory"
	"github.com/communitylink/registrar/internal/domain/wallet"
	"github.com/communitylink/registrar/internal/errors"
	"github.com/communitylink/registrar/internal/identity"
)

type fakeResolver struct {
	resolution wallet.Resolution
	err        error
}

func (f *fakeResolver) Resolve(ctx context.Context, authToken string) (wallet.Resolution, error) {
	return f.resolution, f.err
}

type fakeSubmitter struct {
	hash    string
	err     error
	calls   atomic.Int32
	gate    chan struct{} // when set, SubmitRegistration blocks until closed
	lastArg [4]string
}

func (f *fakeSubmitter) SubmitRegistration(ctx context.Context, walletAddress, communityID, name, rules string) (string, error) {
	f.lastArg = [4]string{walletAddress, communityID, name, rules}
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return "", f.err
	}
	return f.hash, nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms).UTC() }
}

func newTestService(t *testing.T, cfg Config) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	if cfg.Store == nil {
		cfg.Store = store
	}
	if cfg.Pending == nil {
		cfg.Pending = store
	}
	if cfg.Wallets == nil {
		cfg.Wallets = &fakeResolver{}
	}
	if cfg.Origin == "" {
		cfg.Origin = "https://x.test"
	}
	if cfg.Now == nil {
		cfg.Now = fixedClock(1000)
	}
	return New(cfg), store
}

func TestRegisterBuildsLinkFromOriginAndClock(t *testing.T) {
	svc, store := newTestService(t, Config{})
	session := identity.Session{UserID: "u1", Email: "user@example.com"}

	result, err := svc.Register(context.Background(), session, Input{
		CommunityID: "c1",
		Name:        "n1",
		Rules:       "r1",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://x.test/community/c1-1000", result.Community.UniqueLink)
	assert.Equal(t, "user@example.com", result.Community.UserID)
	assert.Empty(t, result.TxHash)
	assert.NoError(t, result.ChainErr)

	persisted, err := store.GetCommunity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Community, persisted)
}

func TestRegisterTrailingSlashOriginNormalised(t *testing.T) {
	svc, _ := newTestService(t, Config{Origin: "https://x.test/"})

	result, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "c1", Name: "n1", Rules: "r1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/community/c1-1000", result.Community.UniqueLink)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	_, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "  ", Name: "n1", Rules: "r1",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidInput), "got %v", err)
}

func TestRegisterResolvesWalletBestEffort(t *testing.T) {
	resolver := &fakeResolver{resolution: wallet.Resolution{
		Wallet: wallet.Wallet{NetworkName: "APTOS_TESTNET", Address: "0xabc"},
		Found:  true,
	}}
	svc, _ := newTestService(t, Config{Wallets: resolver})

	result, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "c1", Name: "n1", Rules: "r1", AuthToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", result.Community.WalletAddress)
}

func TestRegisterWalletFailureDoesNotBlock(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("custody down")}
	svc, _ := newTestService(t, Config{Wallets: resolver})

	result, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "c1", Name: "n1", Rules: "r1", AuthToken: "tok",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Community.WalletAddress)
}

func TestRegisterConsumesPendingUserID(t *testing.T) {
	svc, store := newTestService(t, Config{})
	require.NoError(t, store.PutPending(context.Background(), storage.RoleUser, "abc123"))
	require.NoError(t, store.PutPending(context.Background(), storage.RoleMember, "m-1"))

	_, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "c1", Name: "n1", Rules: "r1",
	})
	require.NoError(t, err)

	_, err = store.GetPending(context.Background(), storage.RoleUser)
	assert.True(t, stderrors.Is(err, storage.ErrNotFound), "pending user id should be consumed")

	memberID, err := store.GetPending(context.Background(), storage.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "m-1", memberID, "member capture must survive registration")
}

func TestRegisterChainSuccess(t *testing.T) {
	submitter := &fakeSubmitter{hash: "0xhash"}
	resolver := &fakeResolver{resolution: wallet.Resolution{
		Wallet: wallet.Wallet{Address: "0xabc"}, Found: true,
	}}
	svc, _ := newTestService(t, Config{Submitter: submitter, Wallets: resolver})

	result, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "c1", Name: "n1", Rules: "r1", AuthToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xhash", result.TxHash)
	assert.Equal(t, [4]string{"0xabc", "c1", "n1", "r1"}, submitter.lastArg)
}

func TestRegisterChainFailureKeepsLocalRecord(t *testing.T) {
	submitter := &fakeSubmitter{err: fmt.Errorf("node rejected")}
	svc, store := newTestService(t, Config{Submitter: submitter})

	result, err := svc.Register(context.Background(), identity.Session{Email: "u"}, Input{
		CommunityID: "c1", Name: "n1", Rules: "r1",
	})
	require.NoError(t, err, "chain failure must not fail the registration")
	require.Error(t, result.ChainErr)
	assert.True(t, errors.IsCode(result.ChainErr, errors.CodeChainSubmit))
	assert.Empty(t, result.TxHash)

	persisted, err := store.GetCommunity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", persisted.CommunityID, "local record survives chain failure")
}

func TestRegisterRejectsConcurrentSubmit(t *testing.T) {
	gate := make(chan struct{})
	submitter := &fakeSubmitter{hash: "0xhash", gate: gate}
	svc, _ := newTestService(t, Config{Submitter: submitter})

	input := Input{CommunityID: "c1", Name: "n1", Rules: "r1"}

	var wg sync.WaitGroup
	wg.Add(1)
	firstDone := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := svc.Register(context.Background(), identity.Session{Email: "u"}, input)
		firstDone <- err
	}()

	// Wait for the first submit to reach the chain call, then race a second.
	for i := 0; submitter.calls.Load() == 0 && i < 200; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotZero(t, submitter.calls.Load(), "first submit never reached the chain")

	_, err := svc.Register(context.Background(), identity.Session{Email: "u"}, input)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConflict), "got %v", err)

	close(gate)
	wg.Wait()
	require.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), submitter.calls.Load())
}

func TestCapturePendingRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	err := svc.CapturePending(context.Background(), "admin", "abc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidInput))
}

func TestPendingForMissingIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	id, err := svc.PendingFor(context.Background(), storage.RoleUser)
	require.NoError(t, err)
	assert.Empty(t, id)
}
