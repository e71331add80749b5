package vision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrConfigRequired    = errors.New("model format requires a config file")
	ErrModelNotLoaded    = errors.New("model is not loaded")
	ErrEngineUnavailable = errors.New("gocv build tag is not enabled")
)

// YoloDetector детектор YOLO поверх внешнего движка инференса.
// Формат модели выбирается по расширению файла.
type YoloDetector struct {
	engine port.InferenceEngine
	logger *slog.Logger

	// inferMu сериализует обращения к движку; загрузка держит его до публикации
	// нового состояния, поэтому Forward всегда видит выходы своей модели.
	inferMu sync.Mutex

	mu          sync.RWMutex
	config      entity.DetectionConfig
	classNames  []string
	outputNames []string
	modelPath   string
	loaded      bool
}

// NewYoloDetector создаёт незагруженный детектор с метками COCO
func NewYoloDetector(engine port.InferenceEngine, logger *slog.Logger) *YoloDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &YoloDetector{
		engine:     engine,
		logger:     logger,
		config:     entity.DefaultDetectionConfig(),
		classNames: slices.Clone(entity.DefaultClassNames),
	}
}

// FormatFromPath определяет формат модели по расширению
func FormatFromPath(modelPath string) (port.ModelFormat, error) {
	ext := strings.ToLower(filepath.Ext(modelPath))
	switch ext {
	case ".onnx":
		return port.FormatONNX, nil
	case ".weights":
		return port.FormatDarknet, nil
	case ".pb":
		return port.FormatTensorflow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// LoadModel загружает модель. При ошибке детектор остаётся в прежнем состоянии.
func (d *YoloDetector) LoadModel(modelPath, configPath, classesPath string) error {
	format, err := FormatFromPath(modelPath)
	if err != nil {
		return err
	}

	if format == port.FormatDarknet {
		if configPath == "" {
			return fmt.Errorf("%w: %s", ErrConfigRequired, filepath.Base(modelPath))
		}
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigRequired, err)
		}
	}

	if d.engine == nil {
		return fmt.Errorf("load %s: no inference engine", modelPath)
	}

	d.inferMu.Lock()
	defer d.inferMu.Unlock()

	outputNames, err := d.loadEngine(format, modelPath, configPath)
	if err != nil {
		d.logger.Error("failed to load model", "path", modelPath, "format", format, "error", err)
		return fmt.Errorf("load %s: %w", modelPath, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if classesPath != "" {
		names, err := readClassNames(classesPath)
		switch {
		case err != nil:
			d.logger.Warn("keeping current class names", "path", classesPath, "error", err)
		case len(names) == 0:
			d.logger.Warn("class file is empty, keeping current class names", "path", classesPath)
		default:
			d.classNames = names
		}
	}

	d.outputNames = outputNames
	d.modelPath = modelPath
	d.loaded = true

	d.logger.Info("model loaded", "path", modelPath, "format", format,
		"outputs", len(outputNames), "classes", len(d.classNames))
	return nil
}

// loadEngine вызывает движок и превращает панику в ошибку. Вызывается под inferMu.
func (d *YoloDetector) loadEngine(format port.ModelFormat, modelPath, configPath string) (names []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			names, err = nil, fmt.Errorf("inference engine panic: %v", r)
		}
	}()

	return d.engine.Load(format, modelPath, configPath)
}

// Detect находит объекты на изображении.
// Пустое изображение, незагруженная модель и ошибки движка дают пустой список.
func (d *YoloDetector) Detect(ctx context.Context, img image.Image) []entity.Detection {
	if img == nil || img.Bounds().Empty() {
		return []entity.Detection{}
	}

	if !d.IsLoaded() {
		return []entity.Detection{}
	}

	outputs, model, err := d.forward(ctx, img)
	if errors.Is(err, ErrModelNotLoaded) {
		return []entity.Detection{}
	}
	if err != nil {
		d.logger.Warn("inference failed", "error", err)
		return []entity.Detection{}
	}

	bounds := img.Bounds()
	return PostProcess(outputs, bounds.Dx(), bounds.Dy(), model.config, model.classNames)
}

// modelState состояние модели, с которым выполнялся один прямой проход
type modelState struct {
	config      entity.DetectionConfig
	classNames  []string
	outputNames []string
}

// forward снимает состояние модели под inferMu и вызывает движок
func (d *YoloDetector) forward(ctx context.Context, img image.Image) (outputs []port.Tensor, model modelState, err error) {
	d.inferMu.Lock()
	defer d.inferMu.Unlock()

	d.mu.RLock()
	loaded := d.loaded
	model = modelState{
		config:      d.config.Clone(),
		classNames:  d.classNames,
		outputNames: d.outputNames,
	}
	d.mu.RUnlock()

	if !loaded {
		return nil, model, ErrModelNotLoaded
	}

	defer func() {
		if r := recover(); r != nil {
			outputs, err = nil, fmt.Errorf("inference engine panic: %v", r)
		}
	}()

	outputs, err = d.engine.Forward(ctx, img, model.config.InputWidth, model.config.InputHeight, model.outputNames)
	return outputs, model, err
}

// SetConfig применяет конфигурацию; невалидная отклоняется, текущая остаётся
func (d *YoloDetector) SetConfig(cfg entity.DetectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = cfg.Clone()
	d.mu.Unlock()
	return nil
}

// Config возвращает копию текущей конфигурации
func (d *YoloDetector) Config() entity.DetectionConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config.Clone()
}

// IsLoaded сообщает, загружена ли модель
func (d *YoloDetector) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// ClassNames возвращает копию списка меток
func (d *YoloDetector) ClassNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.classNames)
}

// ModelInfo краткое описание модели и параметров
func (d *YoloDetector) ModelInfo() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return "No model loaded"
	}
	return fmt.Sprintf("Model: %s\nClasses: %d\nInput size: %dx%d\nConfidence threshold: %.2f\nNMS threshold: %.2f",
		d.modelPath, len(d.classNames), d.config.InputWidth, d.config.InputHeight,
		d.config.ConfidenceThreshold, d.config.NMSThreshold)
}

// Close освобождает движок
func (d *YoloDetector) Close() error {
	if d.engine == nil {
		return nil
	}
	d.inferMu.Lock()
	defer d.inferMu.Unlock()
	return d.engine.Close()
}

// readClassNames читает файл меток: одна метка на строку, пустые строки пропускаются
func readClassNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

var _ port.Detector = (*YoloDetector)(nil)
