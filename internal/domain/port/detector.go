package port

import (
	"context"
	"image"

	"vision-batch/internal/domain/entity"
)

// Detector интерфейс детектора объектов
type Detector interface {
	// LoadModel загружает модель; configPath и classesPath могут быть пустыми
	LoadModel(modelPath, configPath, classesPath string) error

	// Detect возвращает найденные объекты; ошибки инференса дают пустой список
	Detect(ctx context.Context, img image.Image) []entity.Detection

	// SetConfig применяет конфигурацию, невалидная отклоняется
	SetConfig(cfg entity.DetectionConfig) error

	// Config возвращает текущую конфигурацию
	Config() entity.DetectionConfig

	// IsLoaded сообщает, загружена ли модель
	IsLoaded() bool

	// ModelInfo краткое описание загруженной модели
	ModelInfo() string
}
