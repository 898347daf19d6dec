// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/ssargent/slotdb/pkg/coordinator"
	"github.com/ssargent/slotdb/pkg/store"
)

// DefaultTableFactory is the default implementation of TableFactory
type DefaultTableFactory struct{}

// NewTableFactory creates a new table factory
func NewTableFactory() TableFactory {
	return &DefaultTableFactory{}
}

// CreateTableOpener creates a table opener
func (f *DefaultTableFactory) CreateTableOpener() TableOpener {
	return &DefaultTableOpener{}
}

// DefaultTableOpener is the default implementation of TableOpener
type DefaultTableOpener struct{}

// OpenTable loads the table file and wraps it in a coordinator
func (o *DefaultTableOpener) OpenTable(ctx context.Context, config store.TableConfig) (*coordinator.Coordinator, error) {
	table, err := store.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	return coordinator.New(table, config.Logger), nil
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, coord *coordinator.Coordinator, config ServerConfig) error {
	return StartServer(ctx, coord, config)
}
