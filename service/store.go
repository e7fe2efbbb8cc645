package service

import (
	"context"
	"sync"

	"github.com/TIANLI0/CutoutStudio/model"
)

// DefaultHistoryLimit 历史记录保留的项目数
const DefaultHistoryLimit = 15

// ProjectStore 项目历史存储，按最近使用排序，最新的在前，按 id 去重
type ProjectStore interface {
	// Save 插入或替换到最前面，超出上限时淘汰最旧的项目
	Save(ctx context.Context, rec *model.ProjectRecord) error
	// Load 不存在时返回 model.ErrProjectNotFound
	Load(ctx context.Context, id string) (*model.ProjectRecord, error)
	List(ctx context.Context) ([]*model.ProjectRecord, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore 进程内存储
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	records []*model.ProjectRecord
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Save(_ context.Context, rec *model.ProjectRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.ProjectRecord, 0, len(s.records)+1)
	out = append(out, rec)
	for _, r := range s.records {
		if r.ID != rec.ID {
			out = append(out, r)
		}
	}
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	s.records = out
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*model.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, model.ErrProjectNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*model.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.ProjectRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
			return nil
		}
	}
	return model.ErrProjectNotFound
}
