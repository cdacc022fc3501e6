package chain

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Default transaction parameters.
const (
	DefaultMaxGasAmount = 2000
	DefaultGasUnitPrice = 100
	DefaultTxExpiry     = 10 * time.Minute
)

// Submitter builds, signs, and submits community registry transactions.
type Submitter struct {
	client          *Client
	signer          *Signer
	contractAddress string
	entryFunction   string
}

// NewSubmitter creates a registry transaction submitter.
func NewSubmitter(client *Client, signer *Signer, contractAddress, entryFunction string) (*Submitter, error) {
	if client == nil || signer == nil {
		return nil, fmt.Errorf("client and signer required")
	}
	if contractAddress == "" {
		return nil, fmt.Errorf("contract address required")
	}
	if entryFunction == "" {
		entryFunction = "register_community"
	}
	return &Submitter{
		client:          client,
		signer:          signer,
		contractAddress: contractAddress,
		entryFunction:   entryFunction,
	}, nil
}

// SubmitRegistration publishes a community registration on-chain and returns
// the transaction hash. The operator account is the sender; the user wallet
// address is the first payload argument.
func (s *Submitter) SubmitRegistration(ctx context.Context, walletAddress, communityID, name, rules string) (string, error) {
	account, err := s.client.GetAccount(ctx, s.signer.Address())
	if err != nil {
		return "", fmt.Errorf("fetch operator account: %w", err)
	}

	tx := &TransactionRequest{
		Sender:                  s.signer.Address(),
		SequenceNumber:          strconv.FormatUint(account.SequenceNumber, 10),
		MaxGasAmount:            strconv.Itoa(DefaultMaxGasAmount),
		GasUnitPrice:            strconv.Itoa(DefaultGasUnitPrice),
		ExpirationTimestampSecs: strconv.FormatInt(time.Now().Add(DefaultTxExpiry).Unix(), 10),
		Payload:                 RegistryPayload(s.contractAddress, s.entryFunction, walletAddress, communityID, name, rules),
	}

	signingMessage, err := s.client.EncodeSubmission(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	signed, err := s.signer.Sign(tx, signingMessage)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	hash, err := s.client.SubmitTransaction(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}
	return hash, nil
}
