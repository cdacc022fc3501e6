package chain

import "fmt"

// EntryFunctionPayload invokes a Move entry function.
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// TransactionRequest is the unsigned user transaction sent for encoding.
type TransactionRequest struct {
	Sender                  string               `json:"sender"`
	SequenceNumber          string               `json:"sequence_number"`
	MaxGasAmount            string               `json:"max_gas_amount"`
	GasUnitPrice            string               `json:"gas_unit_price"`
	ExpirationTimestampSecs string               `json:"expiration_timestamp_secs"`
	Payload                 EntryFunctionPayload `json:"payload"`
}

// Ed25519Signature authorizes a transaction with a single ed25519 key.
type Ed25519Signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// SignedTransaction is the submit-ready transaction.
type SignedTransaction struct {
	TransactionRequest
	Signature Ed25519Signature `json:"signature"`
}

// RegistryPayload builds the entry-function payload for the community
// registry contract. The registering user's wallet address travels as the
// first argument; the transaction itself is authorized by the operator key.
func RegistryPayload(contractAddress, entryFunction, walletAddress, communityID, name, rules string) EntryFunctionPayload {
	return EntryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      fmt.Sprintf("%s::community_registry::%s", contractAddress, entryFunction),
		TypeArguments: []string{},
		Arguments:     []string{walletAddress, communityID, name, rules},
	}
}
