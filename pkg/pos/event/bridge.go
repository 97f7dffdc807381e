// Package event provides a process-wide notification latch: a single slot
// holding the most recent (event, value) pair, plus a polling watcher that
// turns the slot into a cancellable change stream.
package event

import "sync"

// EventMerchantAddress is emitted when a merchant wallet is registered. The
// value is the merchant's base58 address.
const EventMerchantAddress = "merchant-address"

// Bridge is a single-slot last-write-wins latch. There is no history and no
// per-subscriber state; readers observe whatever was emitted most recently.
//
// All methods are safe for concurrent use.
type Bridge struct {
	mu    sync.Mutex
	event string
	value string
}

func NewBridge() *Bridge {
	return &Bridge{}
}

// Emit overwrites the slot with the provided pair.
func (b *Bridge) Emit(event, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event = event
	b.value = value
}

// Latest returns the current slot. Before any emission both values are
// empty.
func (b *Bridge) Latest() (event, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.event, b.value
}
