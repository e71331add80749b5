package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// ErrRunNotFound запуск с таким ID не сохранён
var ErrRunNotFound = errors.New("run not found")

// MemoryResultRepository in-memory хранилище запусков
type MemoryResultRepository struct {
	mu     sync.RWMutex
	nextID int64
	runs   map[int64]*entity.Run
}

// NewMemoryResultRepository создаёт новое in-memory хранилище
func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{
		runs: make(map[int64]*entity.Run),
	}
}

// SaveRun сохраняет копию запуска и присваивает ему ID
func (r *MemoryResultRepository) SaveRun(ctx context.Context, run *entity.Run) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := cloneRun(run)
	stored.ID = r.nextID
	r.runs[stored.ID] = stored

	return stored.ID, nil
}

// GetRun возвращает копию запуска
func (r *MemoryResultRepository) GetRun(ctx context.Context, id int64) (*entity.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[id]
	if !exists {
		return nil, fmt.Errorf("get run %d: %w", id, ErrRunNotFound)
	}
	return cloneRun(run), nil
}

// ListRuns возвращает запуски без папок, новые первыми
func (r *MemoryResultRepository) ListRuns(ctx context.Context) ([]*entity.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*entity.Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, &entity.Run{ID: run.ID, RootPath: run.RootPath, Stats: run.Stats})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })

	return runs, nil
}

func cloneRun(run *entity.Run) *entity.Run {
	cp := *run
	cp.Folders = make([]*entity.FolderResult, len(run.Folders))
	for i, folder := range run.Folders {
		cp.Folders[i] = folder.Clone()
	}
	return &cp
}

// Проверка реализации интерфейса
var _ port.ResultRepository = (*MemoryResultRepository)(nil)
