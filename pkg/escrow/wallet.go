package escrow

// Wallet is the opaque Monero wallet capability for escrow fund movement
// (spec §6). The engine never constructs or broadcasts transactions
// itself, and it does not hold or call a Wallet either: nothing in this
// package invokes this interface.
type Wallet interface {
	GetBalance() (float64, error)
	DeriveAddress(label string) (string, error)
	BuildTransaction(to string, amountXMR float64) (txHash string, err error)
}
