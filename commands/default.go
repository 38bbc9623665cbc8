package commands

import (
	"sync"

	"github.com/GoCodeAlone/redishandles/handle"
	"github.com/GoCodeAlone/redishandles/registry"
)

var defaultRegistry = sync.OnceValues(func() (*registry.Registry, error) {
	return Build(nil)
})

// Default returns the process-wide registry over the whole command set. It
// is built on first use; every caller sees the same registry or the same
// error.
func Default() (*registry.Registry, error) {
	return defaultRegistry()
}

// MustDefault is Default for callers that cannot run without the registry.
func MustDefault() *registry.Registry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup finds signature in the default registry.
func Lookup(signature string) (*handle.Handle, bool) {
	return MustDefault().Lookup(signature)
}
