// Package account defines the user and strategies stores and their actions.
//
// Hydration actions never return errors. A missing identity, a transport
// failure, or an error envelope is logged and the store keeps its previous
// state.
package account

import (
	"errors"

	"go.uber.org/zap"

	"StrategyDesk/internal/persist"
	"StrategyDesk/internal/remote"
)

// Store names. Each is registered once per registry.
const (
	UserStoreName       = "user"
	StrategiesStoreName = "strategies"
)

// ErrNotReady is logged when an action needs an identity that is not set.
var ErrNotReady = errors.New("identity not set")

// Deps are the collaborators shared by the account stores.
type Deps struct {
	Client  remote.Client
	BaseURL string
	Logger  *zap.Logger
	// Backend is offered to the stores' persistence policy. It is only used
	// when the registry runs in the client environment.
	Backend persist.Backend
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
