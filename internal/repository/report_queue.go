package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/placehub/placement-backend/internal/config"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisReportQueue hands finished score reports to the persistence worker.
type RedisReportQueue struct {
	rdb *redis.Client
}

func NewRedisReportQueue(rdb *redis.Client) *RedisReportQueue {
	return &RedisReportQueue{rdb: rdb}
}

func (q *RedisReportQueue) EnqueueReport(ctx context.Context, report *model.ScoreReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistReportsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue report: %w", err)
	}
	return nil
}
