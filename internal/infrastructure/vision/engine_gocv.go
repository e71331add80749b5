//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"vision-batch/internal/domain/port"
)

// GoCVEngine движок инференса на OpenCV DNN
type GoCVEngine struct {
	net    gocv.Net
	loaded bool
}

// NewGoCVEngine создаёт движок без загруженной сети
func NewGoCVEngine() *GoCVEngine {
	return &GoCVEngine{}
}

// Load читает сеть; старая сеть заменяется только после успешной загрузки.
func (e *GoCVEngine) Load(format port.ModelFormat, modelPath, configPath string) ([]string, error) {
	var net gocv.Net
	switch format {
	case port.FormatONNX:
		net = gocv.ReadNetFromONNX(modelPath)
	case port.FormatDarknet:
		net = gocv.ReadNetFromDarknet(configPath, modelPath)
	case port.FormatTensorflow:
		net = gocv.ReadNetFromTensorflow(modelPath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	names := outputLayerNames(&net)

	if e.loaded {
		e.net.Close()
	}
	e.net = net
	e.loaded = true

	return names, nil
}

// Forward прогоняет изображение через сеть и копирует выходы в тензоры
func (e *GoCVEngine) Forward(ctx context.Context, img image.Image, inputWidth, inputHeight int, outputNames []string) ([]port.Tensor, error) {
	if !e.loaded {
		return nil, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(inputWidth, inputHeight), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	outputs := e.net.ForwardLayers(outputNames)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	tensors := make([]port.Tensor, 0, len(outputs))
	for i := range outputs {
		t, err := matToTensor(outputs[i])
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}
	return tensors, nil
}

// Close освобождает сеть
func (e *GoCVEngine) Close() error {
	if e.loaded {
		e.loaded = false
		return e.net.Close()
	}
	return nil
}

// outputLayerNames имена несвязанных выходных слоёв; каждый слой закрывается сразу после чтения имени
func outputLayerNames(net *gocv.Net) []string {
	return collectOutputNames(net.GetUnconnectedOutLayers(), func(id int) string {
		layer := net.GetLayer(id)
		defer layer.Close()
		return layer.GetName()
	})
}

// matToTensor разворачивает выход 1xNxC (или NxC) в матрицу строк
func matToTensor(m gocv.Mat) (port.Tensor, error) {
	data, err := m.DataPtrFloat32()
	if err != nil {
		return port.Tensor{}, fmt.Errorf("read output: %w", err)
	}

	sizes := m.Size()
	var rows, cols int
	switch len(sizes) {
	case 3:
		rows, cols = sizes[1], sizes[2]
	case 2:
		rows, cols = sizes[0], sizes[1]
	default:
		rows, cols = 1, len(data)
	}

	copied := make([]float32, len(data))
	copy(copied, data)
	return port.Tensor{Rows: rows, Cols: cols, Data: copied}, nil
}

var _ port.InferenceEngine = (*GoCVEngine)(nil)
