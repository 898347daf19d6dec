// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/slotdb/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	tableFactory  api.TableFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		tableFactory:  api.NewTableFactory(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetTableFactory returns the table factory
func (c *Container) GetTableFactory() api.TableFactory {
	return c.tableFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetTableFactory allows overriding the table factory (for testing)
func (c *Container) SetTableFactory(factory api.TableFactory) {
	c.tableFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
