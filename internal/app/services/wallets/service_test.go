package wallets

import (
	"context"
	"fmt"
	"testing"

	"github.com/communitylink/registrar/internal/app/storage/memory"
	"github.com/communitylink/registrar/internal/domain/wallet"
)

type fakeLister struct {
	wallets []wallet.Wallet
	err     error
}

func (f *fakeLister) ListWallets(ctx context.Context, authToken string) ([]wallet.Wallet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.wallets, nil
}

func TestListResolvesAndCaches(t *testing.T) {
	store := memory.New()
	lister := &fakeLister{wallets: []wallet.Wallet{
		{NetworkName: "BASE", Address: "0xbase", Success: true},
		{NetworkName: "APTOS_TESTNET", Address: "0xaptos", Success: true},
	}}
	svc := New(lister, store, "APTOS_TESTNET", nil)

	list, resolution, err := svc.List(context.Background(), "token")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(list))
	}
	if !resolution.Found || resolution.Wallet.Address != "0xaptos" {
		t.Fatalf("unexpected resolution: %+v", resolution)
	}

	cached, err := svc.Cached(context.Background())
	if err != nil {
		t.Fatalf("cached: %v", err)
	}
	if cached.Address != "0xaptos" {
		t.Fatalf("expected cached aptos wallet, got %+v", cached)
	}
}

func TestListNoMatchLeavesCacheUntouched(t *testing.T) {
	store := memory.New()
	if err := store.PutWallet(context.Background(), wallet.Wallet{NetworkName: "APTOS_TESTNET", Address: "0xold"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	lister := &fakeLister{wallets: []wallet.Wallet{{NetworkName: "BASE", Address: "0xbase"}}}
	svc := New(lister, store, "APTOS_TESTNET", nil)

	_, resolution, err := svc.List(context.Background(), "token")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resolution.Found {
		t.Fatalf("expected unresolved, got %+v", resolution)
	}

	cached, err := svc.Cached(context.Background())
	if err != nil {
		t.Fatalf("cached: %v", err)
	}
	if cached.Address != "0xold" {
		t.Fatalf("expected untouched cache, got %+v", cached)
	}
}

func TestListErrorPropagates(t *testing.T) {
	svc := New(&fakeLister{err: fmt.Errorf("custody down")}, memory.New(), "APTOS_TESTNET", nil)
	if _, _, err := svc.List(context.Background(), "token"); err == nil {
		t.Fatal("expected error from custody failure")
	}
}

func TestResolveEmptyListIsNotAnError(t *testing.T) {
	svc := New(&fakeLister{wallets: []wallet.Wallet{}}, memory.New(), "APTOS_TESTNET", nil)
	resolution, err := svc.Resolve(context.Background(), "token")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Found {
		t.Fatalf("expected unresolved wallet, got %+v", resolution)
	}
}
