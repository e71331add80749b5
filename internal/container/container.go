package container

import (
	"log/slog"

	app "vision-batch/internal/application"
	"vision-batch/internal/domain/port"
	"vision-batch/internal/infrastructure/vision"
)

type Container struct {
	Detector  *vision.YoloDetector
	Processor *app.ImageProcessor
	Worker    *app.Worker
}

func New(engine port.InferenceEngine, scanner port.FolderScanner, codec port.ImageCodec, logger *slog.Logger) *Container {
	detector := vision.NewYoloDetector(engine, logger.With("component", "detector"))
	processor := app.NewImageProcessor(codec, logger.With("component", "processor"))
	worker := app.NewWorker(scanner, processor, logger.With("component", "worker"))

	return &Container{
		Detector:  detector,
		Processor: processor,
		Worker:    worker,
	}
}
