package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kestrel-run/recursion-engine/core"
)

// RedisStore persists run records to Redis for cross-process audit: an
// opt-in sidecar to the authoritative in-memory Registry, never a
// replacement for it. A RedisStore never refuses or blocks a run;
// persistence failures are logged and swallowed.
type RedisStore struct {
	client *core.RedisClient
	logger core.Logger
}

// NewRedisStore wraps an already-connected core.RedisClient.
func NewRedisStore(client *core.RedisClient, logger core.Logger) *RedisStore {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &RedisStore{client: client, logger: logger}
}

// PersistSpawn writes a run record's spawn-time fields to Redis under the
// run's id and sets the key to expire six heartbeats (one minute) after
// this write; a record that is not written again within that time expires.
func (s *RedisStore) PersistSpawn(ctx context.Context, run Run) {
	data, err := json.Marshal(run)
	if err != nil {
		s.logger.Warn("registry: failed to marshal run for redis persistence", map[string]interface{}{"run_id": run.RunID, "error": err.Error()})
		return
	}
	key := fmt.Sprintf("run:%s", run.RunID)
	if err := s.client.HSet(ctx, key, "record", string(data)); err != nil {
		s.logger.Warn("registry: failed to persist spawn to redis", map[string]interface{}{"run_id": run.RunID, "error": err.Error()})
		return
	}
	if err := s.client.Expire(ctx, key, core.DefaultRedisHeartbeat*6); err != nil {
		s.logger.Warn("registry: failed to refresh redis ttl", map[string]interface{}{"run_id": run.RunID, "error": err.Error()})
	}
}

// PersistReturn overwrites the same key with the run's post-return state.
func (s *RedisStore) PersistReturn(ctx context.Context, run Run) {
	s.PersistSpawn(ctx, run)
}

// Fetch retrieves a previously persisted run record, for audit/debug
// tooling outside the owning process.
func (s *RedisStore) Fetch(ctx context.Context, runID string) (Run, bool) {
	key := fmt.Sprintf("run:%s", runID)
	raw, err := s.client.HGet(ctx, key, "record")
	if err != nil || raw == "" {
		return Run{}, false
	}
	var run Run
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		s.logger.Warn("registry: failed to unmarshal persisted run", map[string]interface{}{"run_id": runID, "error": err.Error()})
		return Run{}, false
	}
	return run, true
}
