package barcode

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/barcode-pay/pos-server/pkg/solana"
)

// Registry reads barcode entries from the registry program's accounts.
type Registry struct {
	log *logrus.Entry
	sc  solana.Client
}

func NewRegistry(sc solana.Client) *Registry {
	return &Registry{
		log: logrus.StandardLogger().WithField("type", "pos/barcode/registry"),
		sc:  sc,
	}
}

// ListEntries returns every entry owned by the provided wallet, in ledger
// scan order (not guaranteed stable). The scan filters node-side on the
// first 32 bytes of account data matching the owner key.
//
// A record that fails to decode doesn't abort the scan: it is reported in
// the returned error slice and the remaining entries are still returned.
func (r *Registry) ListEntries(owner ed25519.PublicKey) ([]*Entry, []error, error) {
	accounts, _, err := r.sc.GetFilteredProgramAccounts(ProgramKey, 0, owner)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to scan registry accounts")
	}

	var entries []*Entry
	var recordErrs []error
	for _, account := range accounts {
		entry, err := UnmarshalEntry(account.PubKey, account.Data)
		if err != nil {
			r.log.WithField("account", base58.Encode(account.PubKey)).
				WithError(err).
				Warn("skipping undecodable entry")
			recordErrs = append(recordErrs, errors.Wrapf(err, "account %s", base58.Encode(account.PubKey)))
			continue
		}

		entries = append(entries, entry)
	}

	return entries, recordErrs, nil
}
