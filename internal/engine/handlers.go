package engine

import (
	"sync"

	"github.com/petrijr/machina/pkg/api"
)

// handlerRegistry maps error kinds to handlers. Resolution walks from the
// error's exact kind up through the explicit parent table and returns the
// first registered handler, so the most specific kind always wins.
type handlerRegistry struct {
	mu       sync.RWMutex
	handlers map[api.Kind]api.ErrorHandler
	parents  map[api.Kind]api.Kind
}

func newHandlerRegistry(parents map[api.Kind]api.Kind) *handlerRegistry {
	p := make(map[api.Kind]api.Kind, len(parents))
	for child, parent := range parents {
		p[child] = parent
	}
	return &handlerRegistry{
		handlers: make(map[api.Kind]api.ErrorHandler),
		parents:  p,
	}
}

func (r *handlerRegistry) register(kind api.Kind, h api.ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// resolve returns the handler for the most specific kind err is classified
// under. Unclassified errors resolve to nothing.
func (r *handlerRegistry) resolve(err error) (api.ErrorHandler, bool) {
	kind := api.KindOf(err)
	if kind == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[api.Kind]struct{})
	for kind != "" {
		if _, ok := seen[kind]; ok {
			break // parent cycle
		}
		seen[kind] = struct{}{}
		if h, ok := r.handlers[kind]; ok {
			return h, true
		}
		kind = r.parents[kind]
	}
	return nil, false
}
