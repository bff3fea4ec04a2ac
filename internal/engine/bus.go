package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/petrijr/machina/pkg/api"
)

// subscriber is one registered callback. Registration order is the order of
// the list it lives in.
type subscriber struct {
	id api.Subscription
	cb api.Callback
}

type busKey struct {
	stage    api.Stage
	selector string
}

// notificationBus is the ordered, multi-keyed callback registry. Callbacks
// registered under a concrete selector and under api.Any are kept in
// separate lists; dispatch consults both, specific before wildcard, each in
// registration order.
type notificationBus struct {
	mu       sync.RWMutex
	specific map[busKey][]subscriber
	wildcard map[api.Stage][]subscriber
	index    map[api.Subscription]busKey
}

func newNotificationBus() *notificationBus {
	return &notificationBus{
		specific: make(map[busKey][]subscriber),
		wildcard: make(map[api.Stage][]subscriber),
		index:    make(map[api.Subscription]busKey),
	}
}

// subscribe appends cb to the list keyed by (stage, selector) and returns
// its handle.
func (b *notificationBus) subscribe(stage api.Stage, selector string, cb api.Callback) api.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscriber{
		id: api.Subscription(uuid.NewString()),
		cb: cb,
	}
	key := busKey{stage: stage, selector: selector}
	if selector == api.Any {
		b.wildcard[stage] = append(b.wildcard[stage], sub)
	} else {
		b.specific[key] = append(b.specific[key], sub)
	}
	b.index[sub.id] = key
	return sub.id
}

// unsubscribe removes the callback registered under id. Unknown handles are
// ignored.
func (b *notificationBus) unsubscribe(id api.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key, ok := b.index[id]
	if !ok {
		return
	}
	delete(b.index, id)

	if key.selector == api.Any {
		b.wildcard[key.stage] = removeSubscriber(b.wildcard[key.stage], id)
	} else {
		b.specific[key] = removeSubscriber(b.specific[key], id)
	}
}

func removeSubscriber(subs []subscriber, id api.Subscription) []subscriber {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// snapshot returns the callbacks matching (stage, selector) in dispatch
// order. The copy lets callbacks subscribe or unsubscribe without affecting
// the in-flight dispatch.
func (b *notificationBus) snapshot(stage api.Stage, selector string) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	specific := b.specific[busKey{stage: stage, selector: selector}]
	wildcard := b.wildcard[stage]
	out := make([]subscriber, 0, len(specific)+len(wildcard))
	out = append(out, specific...)
	out = append(out, wildcard...)
	return out
}

// dispatch invokes the matching callbacks in order. The bus does not catch
// callback errors: the first error aborts the pass and propagates to the
// caller, which offers it to the machine's error handlers.
func (b *notificationBus) dispatch(ctx context.Context, stage api.Stage, selector string, t api.Transition, args []any) error {
	for _, s := range b.snapshot(stage, selector) {
		if err := s.cb(ctx, t, args...); err != nil {
			return err
		}
	}
	return nil
}
