package port

import (
	"context"
	"image"
)

// ModelFormat формат файла модели
type ModelFormat string

const (
	FormatONNX       ModelFormat = "onnx"
	FormatDarknet    ModelFormat = "darknet"
	FormatTensorflow ModelFormat = "tensorflow"
)

// Tensor выход модели в виде матрицы Rows x Cols по строкам
type Tensor struct {
	Rows int
	Cols int
	Data []float32
}

// Row возвращает i-ю строку без копирования
func (t Tensor) Row(i int) []float32 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// InferenceEngine внешний движок нейросети
type InferenceEngine interface {
	// Load читает веса и возвращает имена выходных тензоров
	Load(format ModelFormat, modelPath, configPath string) ([]string, error)

	// Forward прогоняет изображение через сеть размером inputWidth x inputHeight
	Forward(ctx context.Context, img image.Image, inputWidth, inputHeight int, outputNames []string) ([]Tensor, error)

	// Close освобождает ресурсы движка
	Close() error
}
