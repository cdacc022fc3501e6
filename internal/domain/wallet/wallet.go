// Package wallet defines custodial wallet records sourced from the custody service.
package wallet

// Wallet mirrors a single custody wallet entry. The custody service owns the
// field shapes; they are read-only here.
type Wallet struct {
	NetworkName string `json:"network_name"`
	Address     string `json:"address"`
	Success     bool   `json:"success"`
}

// Resolution is the outcome of selecting the target-network wallet from a
// custody listing. Found is false when no entry matches; that is a valid
// state, not an error.
type Resolution struct {
	Wallet Wallet `json:"wallet"`
	Found  bool   `json:"found"`
}

// Select picks the first wallet whose network name equals network exactly.
func Select(wallets []Wallet, network string) Resolution {
	for _, w := range wallets {
		if w.NetworkName == network {
			return Resolution{Wallet: w, Found: true}
		}
	}
	return Resolution{}
}
