// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/slotdb/pkg/coordinator"
	"github.com/ssargent/slotdb/pkg/store"
)

// TableOpener opens a table file and returns a coordinator over it
type TableOpener interface {
	// OpenTable loads the table described by config
	OpenTable(ctx context.Context, config store.TableConfig) (*coordinator.Coordinator, error)
}

// TableFactory creates table openers
type TableFactory interface {
	// CreateTableOpener creates a table opener
	CreateTableOpener() TableOpener
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API over coord until ctx is cancelled
	StartServer(ctx context.Context, coord *coordinator.Coordinator, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
