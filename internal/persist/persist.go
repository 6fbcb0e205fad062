// Package persist provides the key-value backends that store projections
// are written to, and the environment check that decides whether a backend
// is available at all.
package persist

// Backend is a string key-value store scoped to one client installation.
type Backend interface {
	// GetItem returns the stored value and whether the key exists.
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
}

// Environment is the execution context a store is constructed in.
type Environment int

const (
	// Server is a rendering or batch context with no durable client storage.
	Server Environment = iota
	// Client is an interactive context that owns durable storage.
	Client
)

func (e Environment) String() string {
	switch e {
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return "unknown"
	}
}

// ParseEnvironment maps a config value to an Environment. Unknown values
// resolve to Server so that nothing is persisted by accident.
func ParseEnvironment(s string) Environment {
	if s == "client" {
		return Client
	}
	return Server
}

// Resolver picks the backend for an environment. A nil result means "no
// persistence".
type Resolver func(env Environment) Backend

// ClientOnly returns a Resolver that yields b in a Client environment and
// nil everywhere else.
func ClientOnly(b Backend) Resolver {
	return func(env Environment) Backend {
		if env != Client || b == nil {
			return nil
		}
		return b
	}
}
