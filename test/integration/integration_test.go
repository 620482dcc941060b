//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/redline/internal/config"
	"github.com/agenthands/redline/internal/core"
	"github.com/agenthands/redline/internal/core/correction"
	"github.com/agenthands/redline/internal/core/merge"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/driver"
	"github.com/agenthands/redline/internal/llm"
	"github.com/agenthands/redline/internal/store"
)

// setup loads config/config.toml (or the defaults) plus the environment and
// connects to Memgraph. It skips when MEMGRAPH_URI is not set.
func setup(t *testing.T) (*config.Config, *driver.MemgraphDriver) {
	t.Helper()
	_ = godotenv.Load("../../.env")
	if os.Getenv("MEMGRAPH_URI") == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}

	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		t.Logf("Config not found, using default: %v", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv(os.LookupEnv)

	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })
	require.NoError(t, d.BuildIndices(ctx))
	return cfg, d
}

func cleanup(t *testing.T, s *store.SavedStore, ids ...string) {
	t.Cleanup(func() {
		for _, id := range ids {
			_ = s.Remove(context.Background(), id)
		}
	})
}

func TestFullFlow(t *testing.T) {
	cfg, d := setup(t)
	ctx := context.Background()

	client, err := llm.NewClient(ctx, cfg.LLM)
	require.NoError(t, err)

	saved := store.NewSavedStore(d, cfg.Concurrency.SaveBatch)
	reviewer := core.NewReviewer(
		correction.NewLLMCorrector(client, cfg.Prompts.Correction, core.NewID),
		correction.NewLLMMerger(client, cfg.Prompts.Merge, core.NewID),
		saved,
	)
	workspace := fmt.Sprintf("test-ws-%s", uuid.New().String())

	// Step 1: correct an attempt with two obvious mistakes
	rev, err := reviewer.Correct(ctx, workspace, model.CorrectionRequest{
		Source:  "我昨天去商店买水果",
		Attempt: "Yesterday I go to the shop to buy fruits.",
	})
	require.NoError(t, err)
	t.Logf("Corrected: %q score=%d annotations=%d", rev.Corrected, rev.Score, len(rev.Annotations))
	require.NotEmpty(t, rev.Annotations)
	for _, h := range rev.OriginalHighlights {
		assert.True(t, h.Range.Within(len([]rune(rev.Attempt))))
	}

	// Step 2: merge the first two annotations if the model produced two
	if len(rev.Annotations) >= 2 {
		s, err := reviewer.Session(workspace)
		require.NoError(t, err)
		seed := rev.Annotations[0].ID
		s.Enter(&seed)
		require.True(t, s.Toggle(rev.Annotations[1].ID))
		res := s.Confirm(ctx, "")
		t.Logf("Merge outcome: %s (%v)", res.Outcome, res.Err)
		if res.Outcome == merge.OutcomeMerged {
			after, err := reviewer.Review(workspace)
			require.NoError(t, err)
			assert.Len(t, after.Annotations, len(rev.Annotations)-1)
			assert.Equal(t, res.Merged.ID, after.SelectedID)
		}
	}

	// Step 3: save everything on the right stash and read it back
	records, err := reviewer.SaveAll(ctx, workspace, model.StashRight)
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UUID)
	}
	cleanup(t, saved, ids...)

	for _, id := range ids {
		sa, err := saved.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StashRight, sa.Stash)
		p, err := store.Payload(*sa)
		require.NoError(t, err)
		assert.Equal(t, "Yesterday I go to the shop to buy fruits.", p.InputEn)
	}
}
