package storage

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// hub fans out change notifications per topic. Notifications coalesce:
// a subscriber that has not yet consumed one change sees a single signal.
type hub struct {
	mu     sync.Mutex
	topics map[string]map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{topics: make(map[string]map[chan struct{}]struct{})}
}

func (h *hub) subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.topics[topic], ch)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
		h.mu.Unlock()
	}
}

func (h *hub) publish(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.topics[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func papersTopic(projectID string) string       { return "papers/" + projectID }
func similaritiesTopic(projectID string) string { return "similarities/" + projectID }
func bibTopic(projectID string) string          { return "bib/" + projectID }

// watch emits load's result once immediately and again after every change
// published on topic, until ctx is done. With a poll interval set it also
// reloads on every tick and emits if the result differs from the last one
// sent. The channel is closed on exit. Load errors are logged and skipped.
func watch[T any](ctx context.Context, d *DB, topic string, load func(context.Context) (T, error)) <-chan T {
	out := make(chan T)
	notify, unsubscribe := d.hub.subscribe(topic)

	var tick <-chan time.Time
	var ticker *time.Ticker
	if d.poll > 0 {
		ticker = time.NewTicker(d.poll)
		tick = ticker.C
	}

	go func() {
		defer close(out)
		defer unsubscribe()
		if ticker != nil {
			defer ticker.Stop()
		}

		var (
			last   T
			sent   bool
			polled bool
		)
		for {
			v, err := load(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				d.logger.Warn().Err(err).Str("topic", topic).Msg("live query failed")
			case polled && sent && reflect.DeepEqual(v, last):
				// unchanged
			default:
				select {
				case out <- v:
					last, sent = v, true
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-notify:
				polled = false
			case <-tick:
				polled = true
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
