package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// errorMetadataPrefix префикс метаданных изображения, обработка которого упала
const errorMetadataPrefix = "Error processing image: "

// ImageProcessor обрабатывает одно изображение: загрузка, детекция, разметка, метаданные
type ImageProcessor struct {
	codec        port.ImageCodec
	logger       *slog.Logger
	annotatedDir string
}

// NewImageProcessor создаёт обработчик изображений
func NewImageProcessor(codec port.ImageCodec, logger *slog.Logger) *ImageProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageProcessor{codec: codec, logger: logger}
}

// SetAnnotatedDir включает сохранение размеченных копий в каталог dir
func (p *ImageProcessor) SetAnnotatedDir(dir string) {
	p.annotatedDir = dir
}

// Process заполняет результат изображения. Каждый результат обрабатывается не больше одного раза:
// при ошибке он всё равно помечается обработанным, а текст ошибки попадает в Metadata.
// rootPath корень запуска; размеченная копия повторяет путь изображения относительно него.
func (p *ImageProcessor) Process(ctx context.Context, detector port.Detector, rootPath string, result *entity.ImageResult) error {
	if result == nil || result.Processed {
		return nil
	}

	if err := p.process(ctx, detector, rootPath, result); err != nil {
		result.Processed = true
		result.Metadata = errorMetadataPrefix + err.Error()
		return err
	}
	return nil
}

func (p *ImageProcessor) process(ctx context.Context, detector port.Detector, rootPath string, result *entity.ImageResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if detector == nil {
		return errors.New("detector is not configured")
	}

	img, err := p.codec.Load(result.Path)
	if err != nil {
		return err
	}

	detections := detector.Detect(ctx, img)
	annotated := p.codec.Annotate(img, detections)

	result.Image = img
	result.Annotated = annotated
	result.Detections = detections
	result.Metadata = p.codec.Metadata(result.Path, img, detections)
	result.Processed = true

	if p.annotatedDir != "" && annotated != nil {
		p.export(rootPath, result)
	}
	return nil
}

// export сохраняет размеченную копию в <annotatedDir>/<путь относительно rootPath>.
// Изображения вне rootPath кладутся в <annotatedDir>/<папка>/<файл>.
func (p *ImageProcessor) export(rootPath string, result *entity.ImageResult) {
	target := filepath.Join(p.annotatedDir, exportPath(rootPath, result))
	if err := p.codec.Save(target, result.Annotated); err != nil {
		p.logger.Warn("failed to save annotated image", "path", target, "error", err)
	}
}

func exportPath(rootPath string, result *entity.ImageResult) string {
	fallback := filepath.Join(filepath.Base(filepath.Dir(result.Path)), result.FileName())
	if rootPath == "" {
		return fallback
	}
	rel, err := filepath.Rel(filepath.Clean(rootPath), filepath.Clean(result.Path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fallback
	}
	return rel
}
