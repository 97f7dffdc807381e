package payment

import (
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/barcode-pay/pos-server/pkg/pos/event"
	"github.com/barcode-pay/pos-server/pkg/solana"
	"github.com/barcode-pay/pos-server/pkg/solana/token"
)

// DefaultSignInMessage is shown by wallets alongside the merchant account
// creation approval prompt.
const DefaultSignInMessage = "Sign in order to receive USDC payments!"

type ProvisionOutcome int

const (
	// AlreadyProvisioned means the merchant's token account exists; nothing
	// to sign.
	AlreadyProvisioned ProvisionOutcome = iota

	// NeedsSignature means a creation transaction was constructed and must
	// be signed and submitted by the merchant's wallet.
	NeedsSignature

	// RaceLost means another provisioning call for the same merchant is
	// mid-flight. This is an expected outcome, not a fault; the caller
	// retries once the winner's call has settled.
	RaceLost
)

// ProvisionResult is the outcome of one EnsureMerchantAccount call.
// Transaction and Message are set only for NeedsSignature.
type ProvisionResult struct {
	Outcome ProvisionOutcome

	// Transaction is the serialized, unsigned account creation
	// transaction. The merchant is the fee payer and sole signer.
	Transaction []byte
	Message     string
}

// EmitMode controls when the registration event is published relative to
// the account actually existing on the ledger.
type EmitMode int

const (
	// EmitBeforeConfirm publishes the registration event as soon as a
	// creation transaction is handed out, before the account exists. The
	// client reacts immediately; if the merchant never signs, the event
	// was premature.
	EmitBeforeConfirm EmitMode = iota

	// EmitAfterConfirm publishes only once the account is observed on the
	// ledger.
	EmitAfterConfirm
)

// Provisioner implements idempotent merchant onboarding: ensure a
// merchant's token account exists, constructing an unsigned creation
// transaction when it doesn't.
type Provisioner struct {
	log    *logrus.Entry
	sc     solana.Client
	tc     *token.Client
	bridge *event.Bridge

	mint ed25519.PublicKey

	emitMode EmitMode
	message  string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type ProvisionerOption func(*Provisioner)

// WithEmitMode overrides the default EmitBeforeConfirm behavior.
func WithEmitMode(mode EmitMode) ProvisionerOption {
	return func(p *Provisioner) {
		p.emitMode = mode
	}
}

func NewProvisioner(
	sc solana.Client,
	bridge *event.Bridge,
	mint ed25519.PublicKey,
	opts ...ProvisionerOption,
) *Provisioner {
	p := &Provisioner{
		log:      logrus.StandardLogger().WithField("type", "pos/payment/provisioner"),
		sc:       sc,
		tc:       token.NewClient(sc, mint),
		bridge:   bridge,
		mint:     mint,
		emitMode: EmitBeforeConfirm,
		message:  DefaultSignInMessage,
		inFlight: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// EnsureMerchantAccount checks for the merchant's associated token account
// and, when missing, constructs an unsigned creation transaction for the
// merchant to sign. The check and the construction are not atomic against
// the ledger. While a call for a merchant is mid-flight, overlapping calls
// for the same merchant observe RaceLost; once it settles, the next call
// re-checks the ledger, so a merchant that dismissed the wallet prompt gets
// a fresh transaction by simply retrying.
//
// The registration event is published on every AlreadyProvisioned
// observation, and (under EmitBeforeConfirm) optimistically when a creation
// transaction is handed out.
func (p *Provisioner) EnsureMerchantAccount(merchant ed25519.PublicKey) (*ProvisionResult, error) {
	key := string(merchant)

	p.mu.Lock()
	if _, ok := p.inFlight[key]; ok {
		p.mu.Unlock()
		return &ProvisionResult{Outcome: RaceLost}, nil
	}
	p.inFlight[key] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inFlight, key)
		p.mu.Unlock()
	}()

	account, err := token.GetAssociatedAccount(merchant, p.mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive merchant token account")
	}

	_, err = p.tc.GetAccount(account, solana.CommitmentConfirmed)
	switch errors.Cause(err) {
	case nil:
		p.emit(merchant)
		return &ProvisionResult{Outcome: AlreadyProvisioned}, nil
	case token.ErrAccountNotFound, token.ErrInvalidTokenAccount:
	default:
		return nil, networkError(err)
	}

	instruction, _, err := token.CreateAssociatedTokenAccount(merchant, merchant, p.mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build account creation instruction")
	}

	txn := solana.NewTransaction(merchant, instruction)

	bh, err := p.sc.GetLatestBlockhash()
	if err != nil {
		return nil, networkError(err)
	}
	txn.SetBlockhash(bh)

	if p.emitMode == EmitBeforeConfirm {
		// Published before the account exists so the client can react
		// without waiting for the signature to land.
		p.emit(merchant)
	}

	p.log.WithField("merchant", base58.Encode(merchant)).Info("merchant account creation transaction issued")

	return &ProvisionResult{
		Outcome:     NeedsSignature,
		Transaction: txn.Marshal(),
		Message:     p.message,
	}, nil
}

func (p *Provisioner) emit(merchant ed25519.PublicKey) {
	p.bridge.Emit(event.EventMerchantAddress, base58.Encode(merchant))
}
