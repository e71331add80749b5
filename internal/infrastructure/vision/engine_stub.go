//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"image"

	"vision-batch/internal/domain/port"
)

// GoCVEngine движок-заглушка (без OpenCV).
type GoCVEngine struct{}

// NewGoCVEngine создаёт заглушку движка
func NewGoCVEngine() *GoCVEngine {
	return &GoCVEngine{}
}

// Load возвращает ошибку, если сборка без тега gocv.
func (e *GoCVEngine) Load(format port.ModelFormat, modelPath, configPath string) ([]string, error) {
	_ = format
	_ = modelPath
	_ = configPath
	return nil, ErrEngineUnavailable
}

// Forward возвращает ошибку, если сборка без тега gocv.
func (e *GoCVEngine) Forward(ctx context.Context, img image.Image, inputWidth, inputHeight int, outputNames []string) ([]port.Tensor, error) {
	_ = ctx
	_ = img
	return nil, ErrEngineUnavailable
}

// Close ничего не делает.
func (e *GoCVEngine) Close() error {
	return nil
}

var _ port.InferenceEngine = (*GoCVEngine)(nil)
