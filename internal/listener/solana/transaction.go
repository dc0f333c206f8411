package solana

// wrappedNativeMint is Solana's canonical wrapped-SOL mint address.
const wrappedNativeMint = "So11111111111111111111111111111111111111112"

// Transaction is the subset of a parsed getTransaction response this
// listener needs: account keys (in order, for signer/index extraction),
// post-token-balance mints, and the AMM-program instruction's own account
// list (with an inner-instruction fallback when the top-level list is too short).
type Transaction struct {
	AccountKeys []string

	PostTokenBalances []TokenBalance

	// AMMInstructionAccounts is the accounts list of the instruction that
	// invoked the AMM program directly.
	AMMInstructionAccounts []string

	// InnerInstructionAccounts is the fallback accounts list read from
	// meta.innerInstructions when the top-level instruction's account
	// list is too short.
	InnerInstructionAccounts []string
}

// TokenBalance is one entry of meta.postTokenBalances.
type TokenBalance struct {
	Mint string
}

// NewTokenMint collects distinct mints from
// postTokenBalances, require the wrapped-native mint to appear, and return
// the other distinct mint as the new token. Returns ("", false) if the
// wrapped-native mint is absent, and ("", true) if it is present but there
// isn't exactly one other mint.
func (t *Transaction) NewTokenMint() (mint string, wrappedNativeSeen bool) {
	seen := make(map[string]struct{})
	for _, b := range t.PostTokenBalances {
		if b.Mint != "" {
			seen[b.Mint] = struct{}{}
		}
	}

	if _, ok := seen[wrappedNativeMint]; !ok {
		return "", false
	}
	delete(seen, wrappedNativeMint)

	if len(seen) != 1 {
		return "", true
	}
	for m := range seen {
		return m, true
	}
	return "", true
}

// PoolAddress reads index ammAccountIndex (4) from the AMM instruction's
// own accounts list, falling back to the same index in the
// inner-instruction list.
func (t *Transaction) PoolAddress() string {
	if len(t.AMMInstructionAccounts) > ammAccountIndex {
		return t.AMMInstructionAccounts[ammAccountIndex]
	}
	if len(t.InnerInstructionAccounts) > ammAccountIndex {
		return t.InnerInstructionAccounts[ammAccountIndex]
	}
	return ""
}

// FirstSigner returns the transaction's first account key, which is always
// the fee payer / first signer in Solana's account-key ordering convention.
// Used as the deployer; a pool created through a multisig or a relayer is
// attributed to whichever account paid the fee.
func (t *Transaction) FirstSigner() string {
	if len(t.AccountKeys) == 0 {
		return ""
	}
	return t.AccountKeys[0]
}
