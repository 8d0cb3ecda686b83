package mediaserver

import (
	"sync"

	"github.com/pkg/errors"
)

// Factory builds a client for one configured media server instance.
type Factory func(baseURL, apiKey string) (Client, error)

var (
	factoriesMu sync.Mutex
	factories   = map[Kind]Factory{}
)

// RegisterFactory makes a client implementation available under a kind.
// Implementations register themselves from an init func, the same way
// database/sql drivers do.
func RegisterFactory(kind Kind, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[kind] = f
}

// NewClient builds a client for the given kind. It fails when no
// implementation registered itself for that kind.
func NewClient(kind Kind, baseURL, apiKey string) (Client, error) {
	factoriesMu.Lock()
	f, ok := factories[kind]
	factoriesMu.Unlock()

	if !ok {
		return nil, errors.Errorf("no media server client implementation registered for kind %q", kind)
	}
	return f(baseURL, apiKey)
}
