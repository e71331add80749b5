package entity

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidConfig конфигурация детекции вне допустимых значений
var ErrInvalidConfig = errors.New("invalid detection config")

// DetectionConfig параметры детекции
type DetectionConfig struct {
	ConfidenceThreshold float32  // порог уверенности (0, 1]
	NMSThreshold        float32  // порог IoU для NMS (0, 1]
	InputWidth          int      // ширина входа модели
	InputHeight         int      // высота входа модели
	TargetClasses       []string // пустой список означает все классы
}

// DefaultDetectionConfig возвращает конфигурацию по умолчанию
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.4,
		InputWidth:          640,
		InputHeight:         640,
	}
}

// Validate проверяет пороги и размеры входа
func (c DetectionConfig) Validate() error {
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v out of (0, 1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("%w: nms threshold %v out of (0, 1]", ErrInvalidConfig, c.NMSThreshold)
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("%w: input size %dx%d must be positive", ErrInvalidConfig, c.InputWidth, c.InputHeight)
	}
	return nil
}

// IsValid сокращение для Validate() == nil
func (c DetectionConfig) IsValid() bool {
	return c.Validate() == nil
}

// AcceptsClass проверяет класс по списку целевых классов
func (c DetectionConfig) AcceptsClass(name string) bool {
	if len(c.TargetClasses) == 0 {
		return true
	}
	return slices.Contains(c.TargetClasses, name)
}

// Clone копирует конфигурацию вместе со списком классов
func (c DetectionConfig) Clone() DetectionConfig {
	c.TargetClasses = slices.Clone(c.TargetClasses)
	return c
}
