package chain

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSeed = "2c63b5e5ad8bd0ad2a325dbb93fbc3dd241d6f1211f80e7f9bffca9da6c3d7be"

func TestSignerAddressDerivation(t *testing.T) {
	signer, err := NewSigner(testSeed)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if !strings.HasPrefix(signer.Address(), "0x") || len(signer.Address()) != 66 {
		t.Fatalf("unexpected address %q", signer.Address())
	}
	if !strings.HasPrefix(signer.PublicKeyHex(), "0x") {
		t.Fatalf("unexpected public key %q", signer.PublicKeyHex())
	}

	// Same seed, same address.
	again, err := NewSigner("0x" + testSeed)
	if err != nil {
		t.Fatalf("new signer with prefix: %v", err)
	}
	if again.Address() != signer.Address() {
		t.Fatalf("address not deterministic: %s vs %s", again.Address(), signer.Address())
	}
}

func TestSignerRejectsBadKey(t *testing.T) {
	if _, err := NewSigner("zzzz"); err == nil {
		t.Fatalf("expected invalid hex to be rejected")
	}
	if _, err := NewSigner("abcd"); err == nil {
		t.Fatalf("expected short key to be rejected")
	}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	signer, err := NewSigner(testSeed)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	tx := &TransactionRequest{Sender: signer.Address(), SequenceNumber: "0"}
	message := "0xdeadbeef"
	signed, err := signer.Sign(tx, message)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	seed, _ := hex.DecodeString(testSeed)
	key := ed25519.NewKeyFromSeed(seed)
	raw, _ := hex.DecodeString(strings.TrimPrefix(signed.Signature.Signature, "0x"))
	msg, _ := hex.DecodeString("deadbeef")
	if !ed25519.Verify(key.Public().(ed25519.PublicKey), msg, raw) {
		t.Fatalf("signature does not verify")
	}
	if signed.Signature.Type != "ed25519_signature" {
		t.Fatalf("unexpected signature type %q", signed.Signature.Type)
	}
}

func TestSubmitRegistration(t *testing.T) {
	signer, err := NewSigner(testSeed)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	var submitted SignedTransaction
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/accounts/"):
			w.Write([]byte(`{"sequence_number":"7","authentication_key":"0xaa"}`))
		case r.URL.Path == "/v1/transactions/encode_submission":
			w.Write([]byte(`"0xdeadbeef"`))
		case r.URL.Path == "/v1/transactions":
			if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
				t.Fatalf("decode submitted tx: %v", err)
			}
			w.Write([]byte(`{"hash":"0xfeed"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	submitter, err := NewSubmitter(client, signer, "0xc0ffee", "register_community")
	if err != nil {
		t.Fatalf("new submitter: %v", err)
	}

	hash, err := submitter.SubmitRegistration(context.Background(), "0xuser", "c1", "n1", "r1")
	if err != nil {
		t.Fatalf("submit registration: %v", err)
	}
	if hash != "0xfeed" {
		t.Fatalf("unexpected hash %q", hash)
	}

	if submitted.Sender != signer.Address() {
		t.Fatalf("transaction must be authorized by the operator, got sender %q", submitted.Sender)
	}
	if submitted.SequenceNumber != "7" {
		t.Fatalf("unexpected sequence number %q", submitted.SequenceNumber)
	}
	payload := submitted.Payload
	if payload.Function != "0xc0ffee::community_registry::register_community" {
		t.Fatalf("unexpected function %q", payload.Function)
	}
	want := []string{"0xuser", "c1", "n1", "r1"}
	if len(payload.Arguments) != len(want) {
		t.Fatalf("unexpected arguments %v", payload.Arguments)
	}
	for i := range want {
		if payload.Arguments[i] != want[i] {
			t.Fatalf("argument %d: got %q want %q", i, payload.Arguments[i], want[i])
		}
	}
}

func TestSubmitErrorSurfacesNodeMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid signature"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client, _ := NewClient(Config{BaseURL: server.URL})
	if _, err := client.SubmitTransaction(context.Background(), &SignedTransaction{}); err == nil || !strings.Contains(err.Error(), "invalid signature") {
		t.Fatalf("expected node message in error, got %v", err)
	}
}

func TestWaitForTransaction(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"type":"pending_transaction"}`))
			return
		}
		w.Write([]byte(`{"type":"user_transaction","success":true,"vm_status":"Executed successfully"}`))
	}))
	defer server.Close()

	client, _ := NewClient(Config{BaseURL: server.URL})
	status, err := client.WaitForTransaction(context.Background(), "0xfeed", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !status.Success || status.Pending {
		t.Fatalf("unexpected status %+v", status)
	}
	if calls < 2 {
		t.Fatalf("expected polling, got %d calls", calls)
	}
}
