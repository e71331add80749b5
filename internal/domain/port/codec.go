package port

import (
	"image"

	"vision-batch/internal/domain/entity"
)

// ImageCodec загрузка, аннотация и описание изображений
type ImageCodec interface {
	// Load читает и декодирует файл изображения
	Load(path string) (image.Image, error)

	// Annotate возвращает копию изображения с рамками детекций
	Annotate(img image.Image, detections []entity.Detection) image.Image

	// Metadata формирует текстовое описание изображения и детекций
	Metadata(path string, img image.Image, detections []entity.Detection) string

	// Save записывает изображение в файл, формат по расширению
	Save(path string, img image.Image) error
}
