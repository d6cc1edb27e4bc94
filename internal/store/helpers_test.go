package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ownai-workshop/internal/api"
	"github.com/rcliao/ownai-workshop/internal/testutil"
)

func newTestBackend(t *testing.T) (*testutil.Backend, *api.Client) {
	t.Helper()
	b := testutil.NewBackend(t)
	c, err := api.NewClient(b.URL(), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	return b, c
}

func chain() map[string]any {
	return map[string]any{"_type": "llm_chain", "output_key": "output_text"}
}
