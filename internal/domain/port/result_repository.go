package port

import (
	"context"

	"vision-batch/internal/domain/entity"
)

// ResultRepository интерфейс хранилища завершённых запусков
type ResultRepository interface {
	// SaveRun сохраняет запуск и возвращает его ID
	SaveRun(ctx context.Context, run *entity.Run) (int64, error)

	// GetRun возвращает запуск со всеми папками и детекциями
	GetRun(ctx context.Context, id int64) (*entity.Run, error)

	// ListRuns возвращает запуски без папок, новые первыми
	ListRuns(ctx context.Context) ([]*entity.Run, error)
}
