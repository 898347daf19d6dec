package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slotdb/pkg/api"
	"github.com/ssargent/slotdb/pkg/coordinator"
	"github.com/ssargent/slotdb/pkg/di"
)

type fakeStarter struct {
	config api.ServerConfig
	fields int
}

func (f *fakeStarter) StartServer(ctx context.Context, coord *coordinator.Coordinator, config api.ServerConfig) error {
	f.config = config
	f.fields = coord.Schema().NumFields()
	return nil
}

type fakeServerFactory struct {
	starter *fakeStarter
}

func (f fakeServerFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestServe_UsesInjectedStarter(t *testing.T) {
	starter := &fakeStarter{}
	container := di.NewContainer()
	container.SetServerFactory(fakeServerFactory{starter: starter})
	SetContainer(container)
	t.Cleanup(func() { SetContainer(di.NewContainer()) })

	configPath, dataFile := writeTestConfig(t)
	_, err := run(t, "init", "--config", configPath, "--data-file", dataFile)
	require.NoError(t, err)

	out, err := run(t, "serve", "--config", configPath, "--data-file", dataFile,
		"--port", "9123", "--api-key", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Serving "+dataFile)

	assert.Equal(t, 9123, starter.config.Port)
	assert.Equal(t, "secret", starter.config.APIKey)
	assert.Equal(t, "127.0.0.1", starter.config.Bind)
	assert.NotNil(t, starter.config.Logger)
	assert.Equal(t, 2, starter.fields)
}
