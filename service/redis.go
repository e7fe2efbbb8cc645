package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TIANLI0/CutoutStudio/config"
	"github.com/TIANLI0/CutoutStudio/model"
	"github.com/TIANLI0/CutoutStudio/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	projectKeyPrefix = "project:"
	historyKey       = "projects:history"
)

// RedisStore 项目记录以 JSON 保存在 project:<id>，projects:history 列表保存最近使用顺序
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	limit  int
}

func NewRedisStore(cfg *config.RedisConfig, limit int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisStore(client, cfg.TTL, limit)
}

func newRedisStore(client *redis.Client, ttl time.Duration, limit int) *RedisStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisStore{client: client, ttl: ttl, limit: limit}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save 写入记录并移动到历史最前面，超出上限的旧记录一并删除
func (s *RedisStore) Save(ctx context.Context, rec *model.ProjectRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, projectKeyPrefix+rec.ID, data, s.ttl)
		pipe.LRem(ctx, historyKey, 0, rec.ID)
		pipe.LPush(ctx, historyKey, rec.ID)
		return nil
	})
	if err != nil {
		return err
	}

	evicted, err := s.client.LRange(ctx, historyKey, int64(s.limit), -1).Result()
	if err != nil {
		return err
	}
	if len(evicted) == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LTrim(ctx, historyKey, 0, int64(s.limit-1))
		for _, id := range evicted {
			pipe.Del(ctx, projectKeyPrefix+id)
		}
		return nil
	})
	if err == nil {
		utils.Logger.Debug("evicted projects from history", zap.Strings("ids", evicted))
	}
	return err
}

func (s *RedisStore) Load(ctx context.Context, id string) (*model.ProjectRecord, error) {
	data, err := s.client.Get(ctx, projectKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProjectNotFound
		}
		return nil, err
	}

	var rec model.ProjectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		utils.Logger.Error("failed to unmarshal project record",
			zap.String("project_id", id), zap.Error(err))
		return nil, err
	}
	return &rec, nil
}

// List 按历史顺序返回记录，已过期的键被跳过
func (s *RedisStore) List(ctx context.Context) ([]*model.ProjectRecord, error) {
	ids, err := s.client.LRange(ctx, historyKey, 0, int64(s.limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*model.ProjectRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Load(ctx, id)
		if errors.Is(err, model.ErrProjectNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, projectKeyPrefix+id)
		pipe.LRem(ctx, historyKey, 0, id)
		return nil
	})
	if err != nil {
		return err
	}
	if removed.Val() == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
