// Package payment constructs the unsigned transactions the storefront hands
// to wallets: token transfers for purchases, and merchant token account
// creation during sign-in.
package payment

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/barcode-pay/pos-server/pkg/solana"
	"github.com/barcode-pay/pos-server/pkg/solana/token"
)

// DefaultPurchaseMessage is shown by wallets alongside the transfer
// approval prompt.
const DefaultPurchaseMessage = "Thank you for your purchase of ExiledApe #518"

// Transfer is a fully validated, unsigned purchase transaction.
type Transfer struct {
	// Transaction is the serialized transaction, with signature slots
	// allocated but empty. The payer is the fee payer and sole required
	// signer.
	Transaction []byte

	// Reference is a freshly generated single-use key attached to the
	// transfer instruction as a readonly non-signer, so the transaction
	// can later be located by address. It holds no funds and signs
	// nothing.
	Reference ed25519.PublicKey

	Message string
}

// Builder validates purchase preconditions against the ledger and produces
// unsigned transfer transactions.
type Builder struct {
	log *logrus.Entry
	sc  solana.Client
	tc  *token.Client

	mint ed25519.PublicKey

	// merchant receives payments; merchantKey pays for lazy token account
	// creation. They may belong to different wallets.
	merchant    ed25519.PublicKey
	merchantKey ed25519.PrivateKey

	price   decimal.Decimal
	message string
}

func NewBuilder(
	sc solana.Client,
	mint ed25519.PublicKey,
	merchant ed25519.PublicKey,
	merchantKey ed25519.PrivateKey,
	price decimal.Decimal,
) *Builder {
	return &Builder{
		log:         logrus.StandardLogger().WithField("type", "pos/payment/builder"),
		sc:          sc,
		tc:          token.NewClient(sc, mint),
		mint:        mint,
		merchant:    merchant,
		merchantKey: merchantKey,
		price:       price,
		message:     DefaultPurchaseMessage,
	}
}

// BuildTransfer validates the payer against the ledger and, if every
// precondition holds, returns an unsigned checked transfer of the
// configured price from the payer's token account to the merchant's.
//
// The price is quantized server side: raw amount = floor(price * 10^mint
// decimals). The client never supplies an amount.
func (b *Builder) BuildTransfer(payer ed25519.PublicKey) (*Transfer, error) {
	log := b.log.WithField("payer", base58.Encode(payer))

	if _, err := b.sc.GetAccountInfo(payer, solana.CommitmentConfirmed); err == solana.ErrNoAccountInfo {
		return nil, ErrPayerNotFound
	} else if err != nil {
		return nil, networkError(err)
	}

	sourceAccount, err := token.GetAssociatedAccount(payer, b.mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive payer token account")
	}

	source, err := b.tc.GetAccount(sourceAccount, solana.CommitmentConfirmed)
	switch errors.Cause(err) {
	case nil:
	case token.ErrAccountNotFound, token.ErrInvalidTokenAccount:
		return nil, ErrSenderUninitialized
	default:
		return nil, networkError(err)
	}
	if source.State == token.AccountStateFrozen {
		return nil, ErrSenderFrozen
	}
	if source.State != token.AccountStateInitialized {
		return nil, ErrSenderUninitialized
	}

	destAccount, err := b.ensureMerchantTokenAccount()
	if err != nil {
		return nil, err
	}

	mint, err := b.tc.GetMint(solana.CommitmentConfirmed)
	switch errors.Cause(err) {
	case nil:
	case token.ErrAccountNotFound, token.ErrInvalidMint:
		return nil, ErrMintUninitialized
	default:
		return nil, networkError(err)
	}
	if !mint.IsInitialized {
		return nil, ErrMintUninitialized
	}

	amount := quantizeAmount(b.price, mint.Decimals)
	if source.Amount < amount {
		return nil, ErrInsufficientFunds
	}

	reference, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate reference key")
	}

	instruction := token.TransferChecked(
		sourceAccount,
		b.mint,
		destAccount,
		payer,
		amount,
		mint.Decimals,
	)
	instruction.Accounts = append(instruction.Accounts, solana.NewReadonlyAccountMeta(reference, false))

	txn := solana.NewTransaction(payer, instruction)

	bh, err := b.sc.GetLatestBlockhash()
	if err != nil {
		return nil, networkError(err)
	}
	txn.SetBlockhash(bh)

	log.WithFields(logrus.Fields{
		"amount":    amount,
		"reference": base58.Encode(reference),
	}).Debug("built transfer")

	return &Transfer{
		Transaction: txn.Marshal(),
		Reference:   reference,
		Message:     b.message,
	}, nil
}

// ensureMerchantTokenAccount returns the merchant's associated token
// account, creating it on the fly when it doesn't exist yet. Creation is
// paid and signed by the configured signing key; losing a creation race to
// a concurrent writer is fine as long as the account exists afterwards.
func (b *Builder) ensureMerchantTokenAccount() (ed25519.PublicKey, error) {
	dest, err := token.GetAssociatedAccount(b.merchant, b.mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive merchant token account")
	}

	_, err = b.tc.GetAccount(dest, solana.CommitmentConfirmed)
	switch errors.Cause(err) {
	case nil:
		return dest, nil
	case token.ErrAccountNotFound:
	default:
		return nil, errors.Wrap(ErrMerchantAccountUnavailable, err.Error())
	}

	payer := b.merchantKey.Public().(ed25519.PublicKey)
	instruction, _, err := token.CreateAssociatedTokenAccount(payer, b.merchant, b.mint)
	if err != nil {
		return nil, errors.Wrap(ErrMerchantAccountUnavailable, err.Error())
	}

	txn := solana.NewTransaction(payer, instruction)

	bh, err := b.sc.GetLatestBlockhash()
	if err != nil {
		return nil, networkError(err)
	}
	txn.SetBlockhash(bh)

	if err := txn.Sign(b.merchantKey); err != nil {
		return nil, errors.Wrap(ErrMerchantAccountUnavailable, err.Error())
	}

	sig, err := b.sc.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		if isTransactionRejection(err) {
			// Most likely a concurrent creation; recheck below.
			b.log.WithError(err).Info("merchant token account creation rejected; rechecking")
		} else {
			return nil, networkError(err)
		}
	} else {
		if _, err := b.sc.GetSignatureStatus(sig, solana.CommitmentConfirmed); err != nil {
			return nil, errors.Wrap(ErrMerchantAccountUnavailable, err.Error())
		}
	}

	if _, err := b.tc.GetAccount(dest, solana.CommitmentConfirmed); err != nil {
		return nil, errors.Wrap(ErrMerchantAccountUnavailable, err.Error())
	}

	return dest, nil
}

// isTransactionRejection reports whether a submission error came from the
// transaction being rejected on chain, as opposed to the submission itself
// failing.
func isTransactionRejection(err error) bool {
	switch errors.Cause(err).(type) {
	case *solana.TransactionError, *solana.InstructionError:
		return true
	default:
		return false
	}
}

func quantizeAmount(price decimal.Decimal, decimals uint8) uint64 {
	raw := price.Shift(int32(decimals)).Floor()
	if raw.Sign() <= 0 {
		return 0
	}
	return uint64(raw.IntPart())
}
