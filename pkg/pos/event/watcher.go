package event

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = time.Second

	// watchBufferSize bounds the notification channel. A slow consumer
	// drops intermediate notifications rather than blocking the poll
	// loop, which is fine under last-write-wins.
	watchBufferSize = 8
)

// Notification is one observed change of the bridge slot.
type Notification struct {
	Event string
	Value string
}

// Source is the read side of a Bridge. It's typically backed by the local
// Bridge directly, or by an HTTP round trip to a remote one.
type Source interface {
	Latest() (event, value string)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (event, value string)

func (f SourceFunc) Latest() (event, value string) {
	return f()
}

// Watcher polls a Source at a fixed interval and reports genuine changes. A
// change is genuine only when both the event name and the value differ from
// the previously observed pair; re-emitting an identical pair is observed as
// no change.
type Watcher struct {
	log      *logrus.Entry
	source   Source
	interval time.Duration

	lastEvent string
	lastValue string
}

func NewWatcher(source Source, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Watcher{
		log:      logrus.StandardLogger().WithField("type", "pos/event/watcher"),
		source:   source,
		interval: interval,
	}
}

// Watch polls until ctx is cancelled, delivering notifications on the
// returned channel. The channel is closed when the watcher stops. If the
// consumer falls behind the buffered channel, notifications are dropped.
func (w *Watcher) Watch(ctx context.Context) <-chan Notification {
	ch := make(chan Notification, watchBufferSize)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			event, value := w.source.Latest()
			if event == w.lastEvent || value == w.lastValue {
				continue
			}

			w.lastEvent = event
			w.lastValue = value

			select {
			case ch <- Notification{Event: event, Value: value}:
			default:
				w.log.WithField("event", event).Warn("dropping notification; consumer is behind")
			}
		}
	}()

	return ch
}
