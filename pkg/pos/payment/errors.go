package payment

import "github.com/pkg/errors"

var (
	// ErrPayerNotFound indicates the payer wallet doesn't exist on the
	// ledger at all.
	ErrPayerNotFound = errors.New("payer not found")

	// ErrSenderUninitialized indicates the payer has no usable token
	// account for the configured mint.
	ErrSenderUninitialized = errors.New("sender token account uninitialized")

	// ErrSenderFrozen indicates the payer's token account is frozen.
	ErrSenderFrozen = errors.New("sender token account frozen")

	// ErrMerchantAccountUnavailable indicates the merchant's token account
	// doesn't exist and couldn't be created.
	ErrMerchantAccountUnavailable = errors.New("merchant token account unavailable")

	// ErrMintUninitialized indicates the configured mint isn't an
	// initialized token mint.
	ErrMintUninitialized = errors.New("mint uninitialized")

	// ErrInsufficientFunds indicates the payer's balance doesn't cover the
	// purchase amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNetworkUnavailable indicates a ledger read or write failed for
	// transient reasons. Callers may retry.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

func networkError(err error) error {
	return errors.Wrap(ErrNetworkUnavailable, err.Error())
}
