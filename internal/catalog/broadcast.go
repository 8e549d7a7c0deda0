package catalog

import (
	"sync"

	"notebox/internal/nb"
)

// broadcaster fans snapshots out to subscribers. Each subscriber has its own
// goroutine and a one-slot mailbox; publishing replaces any undelivered
// snapshot, so a slow callback only ever sees the newest state.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	next   int
	closed bool
}

type subscriber struct {
	mailbox chan nb.Snapshot
	done    chan struct{}
	once    sync.Once
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]*subscriber)}
}

// subscribe registers fn. If initial is non-nil it is queued for delivery
// before any later publish.
func (b *broadcaster) subscribe(fn func(nb.Snapshot), initial *nb.Snapshot) func() {
	sub := &subscriber{
		mailbox: make(chan nb.Snapshot, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = sub
	if initial != nil {
		sub.mailbox <- *initial
	}
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case snap := <-sub.mailbox:
				select {
				case <-sub.done:
					return
				default:
				}
				fn(snap)
			}
		}
	}()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.stop()
	}
}

func (b *broadcaster) publish(snap nb.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case <-sub.mailbox:
		default:
		}
		sub.mailbox <- snap
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
