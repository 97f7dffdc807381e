package barcode

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrCorruptEntry indicates account data that doesn't decode as a barcode
// entry: a truncated buffer, or a length field pointing past the end of it.
var ErrCorruptEntry = errors.New("corrupt barcode entry")

const commandCreateEntry = 0

// Entry is one registered product record stored in a registry program
// account.
type Entry struct {
	// ID is the address of the account holding the entry. Assigned at
	// creation, immutable.
	ID ed25519.PublicKey
	// Owner is the wallet that created the entry.
	Owner ed25519.PublicKey

	Name    string
	Icon    string
	Price   float64
	Barcode string
}

// EncodeCreateEntryData encodes the instruction data for a create-entry
// instruction.
//
// Layout (all integers little-endian):
//
//	u8  discriminant (0 = create)
//	u32 name length  || name bytes
//	u32 icon length  || icon bytes
//	f64 price
//	u32 barcode length || barcode bytes
//
// Note this layout is NOT the account-data layout the program writes back
// (see UnmarshalEntry); the two are intentionally kept distinct.
func EncodeCreateEntryData(name, icon string, price float64, barcode string) ([]byte, error) {
	for _, s := range []string{name, icon, barcode} {
		if uint64(len(s)) > math.MaxUint32 {
			return nil, errors.Errorf("string field too long: %d bytes", len(s))
		}
	}

	b := make([]byte, 0, 1+4+len(name)+4+len(icon)+8+4+len(barcode))
	b = append(b, commandCreateEntry)
	b = appendLengthPrefixed(b, name)
	b = appendLengthPrefixed(b, icon)
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(price))
	b = appendLengthPrefixed(b, barcode)

	return b, nil
}

// MarshalEntry encodes an entry using the account-data layout:
//
//	32-byte owner
//	u32 name length  || name bytes
//	u32 icon length  || icon bytes
//	f64 price
//	u32 barcode length || barcode bytes
func MarshalEntry(e *Entry) []byte {
	b := make([]byte, 0, ed25519.PublicKeySize+4+len(e.Name)+4+len(e.Icon)+8+4+len(e.Barcode))
	b = append(b, e.Owner...)
	b = appendLengthPrefixed(b, e.Name)
	b = appendLengthPrefixed(b, e.Icon)
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(e.Price))
	b = appendLengthPrefixed(b, e.Barcode)
	return b
}

// UnmarshalEntry decodes account data using the account-data layout. Every
// length field is checked against the remaining buffer; trailing bytes after
// the barcode field are ignored (accounts may be allocated larger than the
// record).
func UnmarshalEntry(id ed25519.PublicKey, data []byte) (*Entry, error) {
	if len(data) < ed25519.PublicKeySize {
		return nil, ErrCorruptEntry
	}

	e := &Entry{
		ID:    id,
		Owner: make([]byte, ed25519.PublicKeySize),
	}
	copy(e.Owner, data)
	offset := ed25519.PublicKeySize

	var err error
	if e.Name, offset, err = readLengthPrefixed(data, offset); err != nil {
		return nil, err
	}
	if e.Icon, offset, err = readLengthPrefixed(data, offset); err != nil {
		return nil, err
	}

	if offset+8 > len(data) {
		return nil, ErrCorruptEntry
	}
	e.Price = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	if e.Barcode, _, err = readLengthPrefixed(data, offset); err != nil {
		return nil, err
	}

	return e, nil
}

func appendLengthPrefixed(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func readLengthPrefixed(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, ErrCorruptEntry
	}
	n := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if uint64(n) > uint64(len(data)-offset) {
		return "", 0, ErrCorruptEntry
	}

	return string(data[offset : offset+int(n)]), offset + int(n), nil
}
