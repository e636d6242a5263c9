package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turboagent/turbo-agent/internal/catalog"
)

type fakeBackend struct{}

func (fakeBackend) Get(ctx context.Context, path string, query map[string]string, out any) error {
	return nil
}
func (fakeBackend) Post(ctx context.Context, path string, body, out any) error { return nil }
func (fakeBackend) Patch(ctx context.Context, path string, body, out any) error { return nil }

func TestBuild_RegistersWithoutPanicking(t *testing.T) {
	cat := catalog.Default(fakeBackend{})
	require.NotPanics(t, func() {
		server := Build(cat)
		assert.NotNil(t, server)
	})
}
