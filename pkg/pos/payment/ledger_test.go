package payment

import (
	"bytes"
	"crypto/ed25519"
	"sync"

	"github.com/barcode-pay/pos-server/pkg/solana"
	"github.com/barcode-pay/pos-server/pkg/solana/token"
)

// fakeLedger is an in-memory stand-in for a validator node.
type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[string]solana.AccountInfo
	blockhash solana.Blockhash

	submitted []solana.Transaction
	submitErr error

	// onSubmit applies a submitted transaction's effect, e.g. creating the
	// merchant's token account. It runs even when submitErr is set, so a
	// test can model a competing writer landing the same effect first.
	onSubmit func(solana.Transaction)

	// onGetAccountInfo runs at the start of every account lookup, outside
	// the ledger lock, so tests can park a caller mid-read.
	onGetAccountInfo func(ed25519.PublicKey)
}

func newFakeLedger() *fakeLedger {
	f := &fakeLedger{
		accounts: make(map[string]solana.AccountInfo),
	}
	copy(f.blockhash[:], bytes.Repeat([]byte{7}, 32))
	return f
}

func (f *fakeLedger) setWalletAccount(pub ed25519.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[string(pub)] = solana.AccountInfo{
		Owner:    make([]byte, ed25519.PublicKeySize),
		Lamports: 1,
	}
}

func (f *fakeLedger) setTokenAccount(pub ed25519.PublicKey, account token.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[string(pub)] = solana.AccountInfo{
		Owner: token.ProgramKey,
		Data:  account.Marshal(),
	}
}

func (f *fakeLedger) setMint(pub ed25519.PublicKey, mint token.Mint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[string(pub)] = solana.AccountInfo{
		Owner: token.ProgramKey,
		Data:  mint.Marshal(),
	}
}

func (f *fakeLedger) GetAccountInfo(account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	f.mu.Lock()
	hook := f.onGetAccountInfo
	f.mu.Unlock()
	if hook != nil {
		hook(account)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.accounts[string(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (f *fakeLedger) GetLatestBlockhash() (solana.Blockhash, error) {
	return f.blockhash, nil
}

func (f *fakeLedger) GetFilteredProgramAccounts(program ed25519.PublicKey, offset uint, filterValue []byte) ([]solana.ProgramAccount, uint64, error) {
	return nil, 0, nil
}

func (f *fakeLedger) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	return &solana.SignatureStatus{ConfirmationStatus: "finalized"}, nil
}

func (f *fakeLedger) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, txn)
	err := f.submitErr
	onSubmit := f.onSubmit
	f.mu.Unlock()

	var sig solana.Signature
	copy(sig[:], txn.Signature())

	if onSubmit != nil {
		onSubmit(txn)
	}
	return sig, err
}

