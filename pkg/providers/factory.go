package providers

import (
	"sync"

	"github.com/pkg/errors"
)

// Factory builds a provider implementation by name.
type Factory func() (Provider, error)

var (
	factoriesMu sync.Mutex
	factories   = map[string]Factory{}
)

// RegisterFactory makes a provider implementation available under a name.
// Implementations register themselves from an init func.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Build constructs the providers for the given configured names, in order.
// It fails when a name has no registered implementation.
func Build(names []string) ([]Provider, error) {
	built := make([]Provider, 0, len(names))
	for _, name := range names {
		factoriesMu.Lock()
		f, ok := factories[name]
		factoriesMu.Unlock()

		if !ok {
			return nil, errors.Errorf("no provider implementation registered for %q", name)
		}

		p, err := f()
		if err != nil {
			return nil, errors.Wrapf(err, "building provider %s", name)
		}
		built = append(built, p)
	}
	return built, nil
}
