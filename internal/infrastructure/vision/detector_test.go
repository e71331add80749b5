package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

type fakeEngine struct {
	loadErr      error
	loadPanic    bool
	forwardErr   error
	forwardPanic bool
	outputs      []port.Tensor

	loads      int
	lastFormat port.ModelFormat
	lastSize   image.Point
}

func (e *fakeEngine) Load(format port.ModelFormat, modelPath, configPath string) ([]string, error) {
	e.loads++
	e.lastFormat = format
	if e.loadPanic {
		panic("corrupt weights")
	}
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return []string{"output0"}, nil
}

func (e *fakeEngine) Forward(ctx context.Context, img image.Image, w, h int, names []string) ([]port.Tensor, error) {
	e.lastSize = image.Pt(w, h)
	if e.forwardPanic {
		panic("bad tensor")
	}
	if e.forwardErr != nil {
		return nil, e.forwardErr
	}
	return e.outputs, nil
}

func (e *fakeEngine) Close() error { return nil }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadModel_WeightsWithoutConfigFails(t *testing.T) {
	engine := &fakeEngine{}
	d := NewYoloDetector(engine, nil)

	err := d.LoadModel("model.weights", "", "")
	require.ErrorIs(t, err, ErrConfigRequired)
	require.False(t, d.IsLoaded())
	require.Zero(t, engine.loads)

	err = d.LoadModel("model.weights", filepath.Join(t.TempDir(), "missing.cfg"), "")
	require.ErrorIs(t, err, ErrConfigRequired)
	require.False(t, d.IsLoaded())
}

func TestLoadModel_FormatDispatch(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "yolo.cfg", "[net]")

	tests := []struct {
		model  string
		config string
		format port.ModelFormat
	}{
		{"yolo.onnx", "", port.FormatONNX},
		{"YOLO.ONNX", "", port.FormatONNX},
		{"yolo.weights", cfgPath, port.FormatDarknet},
		{"graph.pb", "", port.FormatTensorflow},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			engine := &fakeEngine{}
			d := NewYoloDetector(engine, nil)
			require.NoError(t, d.LoadModel(tt.model, tt.config, ""))
			require.True(t, d.IsLoaded())
			require.Equal(t, tt.format, engine.lastFormat)
		})
	}
}

func TestLoadModel_UnsupportedFormat(t *testing.T) {
	d := NewYoloDetector(&fakeEngine{}, nil)
	require.ErrorIs(t, d.LoadModel("model.pt", "", ""), ErrUnsupportedFormat)
	require.ErrorIs(t, d.LoadModel("model", "", ""), ErrUnsupportedFormat)
	require.False(t, d.IsLoaded())
}

func TestLoadModel_EngineFailureKeepsState(t *testing.T) {
	engine := &fakeEngine{loadErr: errors.New("corrupt file")}
	d := NewYoloDetector(engine, nil)
	require.Error(t, d.LoadModel("a.onnx", "", ""))
	require.False(t, d.IsLoaded())

	engine.loadErr = nil
	engine.loadPanic = true
	require.Error(t, d.LoadModel("a.onnx", "", ""))
	require.False(t, d.IsLoaded())

	engine.loadPanic = false
	require.NoError(t, d.LoadModel("a.onnx", "", ""))

	engine.loadErr = errors.New("corrupt file")
	require.Error(t, d.LoadModel("b.onnx", "", ""))
	require.True(t, d.IsLoaded())
	require.Contains(t, d.ModelInfo(), "a.onnx")
}

func TestLoadModel_ClassNames(t *testing.T) {
	dir := t.TempDir()
	classes := writeFile(t, dir, "classes.txt", "helmet\n\n  vest \nboots\n")

	d := NewYoloDetector(&fakeEngine{}, nil)
	require.NoError(t, d.LoadModel("ppe.onnx", "", classes))
	require.Equal(t, []string{"helmet", "vest", "boots"}, d.ClassNames())

	d = NewYoloDetector(&fakeEngine{}, nil)
	require.NoError(t, d.LoadModel("ppe.onnx", "", filepath.Join(dir, "missing.txt")))
	require.Equal(t, entity.DefaultClassNames, d.ClassNames())
}

func TestDetect_Unloaded(t *testing.T) {
	engine := &fakeEngine{outputs: []port.Tensor{{Rows: 1, Cols: 6, Data: []float32{1, 1, 1, 1, 1, 1}}}}
	d := NewYoloDetector(engine, nil)

	dets := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	require.NotNil(t, dets)
	require.Empty(t, dets)
}

func TestDetect_EmptyImage(t *testing.T) {
	d := NewYoloDetector(&fakeEngine{}, nil)
	require.NoError(t, d.LoadModel("m.onnx", "", ""))

	require.Empty(t, d.Detect(context.Background(), nil))
	require.Empty(t, d.Detect(context.Background(), image.NewRGBA(image.Rectangle{})))
}

func TestDetect_EngineErrorsGiveEmptyResult(t *testing.T) {
	engine := &fakeEngine{forwardErr: errors.New("shape mismatch")}
	d := NewYoloDetector(engine, nil)
	require.NoError(t, d.LoadModel("m.onnx", "", ""))

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	require.Empty(t, d.Detect(context.Background(), img))

	engine.forwardErr = nil
	engine.forwardPanic = true
	require.Empty(t, d.Detect(context.Background(), img))
}

func TestDetect_UsesConfigAndImageSize(t *testing.T) {
	engine := &fakeEngine{outputs: []port.Tensor{{
		Rows: 2, Cols: 7,
		Data: []float32{
			160, 160, 64, 64, 0.9, 0.2, 0.81,
			320, 320, 32, 32, 0.3, 0.9, 0.0,
		},
	}}}
	d := NewYoloDetector(engine, nil)
	require.NoError(t, d.LoadModel("m.onnx", "", ""))

	cfg := entity.DefaultDetectionConfig()
	cfg.InputWidth = 320
	cfg.InputHeight = 320
	require.NoError(t, d.SetConfig(cfg))

	dets := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 640, 480)))
	require.Equal(t, image.Pt(320, 320), engine.lastSize)
	require.Len(t, dets, 1)
	require.Equal(t, 1, dets[0].ClassID)
	require.Equal(t, "bicycle", dets[0].ClassName)
	require.InDelta(t, 0.729, dets[0].Confidence, 1e-6)
	require.Equal(t, entity.Box{X: 256, Y: 192, Width: 128, Height: 96}, dets[0].Box)
}

// swapEngine на второй загрузке ждёт gate и отдаёт новые имена выходов
type swapEngine struct {
	mu      sync.Mutex
	gen     int
	entered chan struct{}
	gate    chan struct{}
	seen    [][]string
}

func (e *swapEngine) Load(port.ModelFormat, string, string) ([]string, error) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	if gen == 2 {
		close(e.entered)
		<-e.gate
	}
	return []string{fmt.Sprintf("out%d", gen)}, nil
}

func (e *swapEngine) Forward(_ context.Context, _ image.Image, _, _ int, names []string) ([]port.Tensor, error) {
	e.mu.Lock()
	e.seen = append(e.seen, slices.Clone(names))
	e.mu.Unlock()
	return nil, nil
}

func (e *swapEngine) Close() error { return nil }

func TestDetect_DuringReloadUsesNewOutputs(t *testing.T) {
	engine := &swapEngine{entered: make(chan struct{}), gate: make(chan struct{})}
	d := NewYoloDetector(engine, nil)
	require.NoError(t, d.LoadModel("first.onnx", "", ""))

	loadErr := make(chan error, 1)
	go func() { loadErr <- d.LoadModel("second.onnx", "", "") }()

	select {
	case <-engine.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("second load did not reach the engine")
	}

	detected := make(chan struct{})
	go func() {
		d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
		close(detected)
	}()

	close(engine.gate)
	require.NoError(t, <-loadErr)
	<-detected

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Equal(t, [][]string{{"out2"}}, engine.seen)
}

func TestSetConfig_RejectsInvalid(t *testing.T) {
	d := NewYoloDetector(&fakeEngine{}, nil)

	good := entity.DefaultDetectionConfig()
	good.ConfidenceThreshold = 0.25
	good.TargetClasses = []string{"person"}
	require.NoError(t, d.SetConfig(good))

	bad := good
	bad.NMSThreshold = 0
	require.ErrorIs(t, d.SetConfig(bad), entity.ErrInvalidConfig)
	require.Equal(t, good, d.Config())

	good.TargetClasses[0] = "dog"
	require.Equal(t, []string{"person"}, d.Config().TargetClasses)
}

func TestModelInfo(t *testing.T) {
	d := NewYoloDetector(&fakeEngine{}, nil)
	require.Equal(t, "No model loaded", d.ModelInfo())

	require.NoError(t, d.LoadModel("yolov5s.onnx", "", ""))
	info := d.ModelInfo()
	require.Contains(t, info, "yolov5s.onnx")
	require.Contains(t, info, "Classes: 80")
	require.Contains(t, info, "Input size: 640x640")
}
