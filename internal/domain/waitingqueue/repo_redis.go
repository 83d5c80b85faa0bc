package waitingqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/frontdesk/frontdesk/internal/platform/errs"
	"github.com/frontdesk/frontdesk/internal/platform/scope"
)

const (
	queueKeyPrefix = "frontdesk:queue:"
	queueIndexKey  = "frontdesk:queues"
)

type repoRedis struct {
	rdb *redis.Client
}

// NewRepo returns a Redis-backed queue repository. Each queue is stored as a
// JSON snapshot under its own key, with a set index for listing.
func NewRepo(rdb *redis.Client) Repository {
	return &repoRedis{rdb: rdb}
}

func queueKey(id uuid.UUID) string { return queueKeyPrefix + id.String() }

func (r *repoRedis) Save(ctx context.Context, q Queue) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal queue %s: %w", q.ID, err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, queueKey(q.ID), data, 0)
	pipe.SAdd(ctx, queueIndexKey, q.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save queue %s: %w", q.ID, err)
	}
	return nil
}

func (r *repoRedis) FindByID(ctx context.Context, id uuid.UUID) (Queue, error) {
	data, err := r.rdb.Get(ctx, queueKey(id)).Bytes()
	if err == redis.Nil {
		return Queue{}, &errs.NotFoundError{Entity: "waiting_queue", ID: id.String()}
	}
	if err != nil {
		return Queue{}, fmt.Errorf("load queue %s: %w", id, err)
	}
	var q Queue
	if err := json.Unmarshal(data, &q); err != nil {
		return Queue{}, fmt.Errorf("decode queue %s: %w", id, err)
	}
	return q, nil
}

func (r *repoRedis) ListByScope(ctx context.Context, sc scope.Scope) ([]Queue, error) {
	ids, err := r.rdb.SMembers(ctx, queueIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	var out []Queue
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		q, err := r.FindByID(ctx, id)
		if errs.IsNotFound(err) {
			// Index entry outlived its snapshot; drop it.
			r.rdb.SRem(ctx, queueIndexKey, raw)
			continue
		}
		if err != nil {
			return nil, err
		}
		if sc.Matches(q.ClinicID, q.WorkspaceID) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *repoRedis) Delete(ctx context.Context, id uuid.UUID) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, queueKey(id))
	pipe.SRem(ctx, queueIndexKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete queue %s: %w", id, err)
	}
	return nil
}
