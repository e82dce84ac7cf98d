package apiroutes

import (
	"sync"
)

// APIRoute defines the structure for an API route entry.
type APIRoute struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var (
	routeRegistry = make([]APIRoute, 0)
	registryMu    sync.RWMutex
)

// Register adds a new route to the API registry.
func Register(path, method, description string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	routeRegistry = append(routeRegistry, APIRoute{
		Path:        path,
		Method:      method,
		Description: description,
	})
}

// Get retrieves a copy of the current API route registry.
func Get() []APIRoute {
	registryMu.RLock()
	defer registryMu.RUnlock()
	registryCopy := make([]APIRoute, len(routeRegistry))
	copy(registryCopy, routeRegistry)
	return registryCopy
}

// ClearForTesting removes all registered routes. For use in tests only.
func ClearForTesting() {
	registryMu.Lock()
	defer registryMu.Unlock()
	routeRegistry = make([]APIRoute, 0)
}
