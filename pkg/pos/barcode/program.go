package barcode

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/barcode-pay/pos-server/pkg/solana"
	"github.com/barcode-pay/pos-server/pkg/solana/system"
)

// ProgramKey is the address of the barcode registry program.
//
// Current key: CjzUfJHocMEMTycycyPMtDVuttjTtaZMjtnDqTj3MXsN
var ProgramKey ed25519.PublicKey

func init() {
	var err error
	ProgramKey, err = base58.Decode("CjzUfJHocMEMTycycyPMtDVuttjTtaZMjtnDqTj3MXsN")
	if err != nil {
		panic(err)
	}
}

// CreateEntry builds the instruction that registers a new barcode entry for
// the owner. A fresh keypair is generated for the entry account; its private
// key is returned because the entry account must co-sign the transaction.
func CreateEntry(owner ed25519.PublicKey, name, icon string, price float64, barcodeValue string) (solana.Instruction, ed25519.PrivateKey, error) {
	data, err := EncodeCreateEntryData(name, icon, price, barcodeValue)
	if err != nil {
		return solana.Instruction{}, nil, errors.Wrap(err, "failed to encode entry data")
	}

	entryPub, entryPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return solana.Instruction{}, nil, errors.Wrap(err, "failed to generate entry keypair")
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(owner, true),
		solana.NewAccountMeta(entryPub, true),
		solana.NewAccountMeta(system.ProgramKey[:], false),
	), entryPriv, nil
}
