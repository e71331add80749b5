package entity

import (
	"image"
	"path/filepath"
	"strings"
)

// SupportedExtensions расширения файлов, которые считаются изображениями
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".webp"}

// IsImageFile проверяет расширение файла без учёта регистра
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ImageResult результат обработки одного изображения.
// Сканер создаёт его необработанным, воркер заполняет ровно один раз.
type ImageResult struct {
	Path       string      // путь к файлу
	Image      image.Image // декодированное изображение
	Annotated  image.Image // копия с нарисованными рамками
	Detections []Detection // найденные объекты
	Metadata   string      // текстовое описание или сообщение об ошибке
	Processed  bool        // флаг завершённой обработки
}

// NewImageResult создаёт необработанный результат для файла
func NewImageResult(path string) *ImageResult {
	return &ImageResult{Path: path}
}

// DetectionCount возвращает число детекций
func (r *ImageResult) DetectionCount() int {
	return len(r.Detections)
}

// HasDetections сообщает, найдено ли хоть что-то
func (r *ImageResult) HasDetections() bool {
	return len(r.Detections) > 0
}

// FileName возвращает имя файла без каталога
func (r *ImageResult) FileName() string {
	return filepath.Base(r.Path)
}

// Clone возвращает копию, не связанную с оригиналом по срезам.
// Буферы изображений не меняются после записи и разделяются.
func (r *ImageResult) Clone() *ImageResult {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Detections != nil {
		cp.Detections = make([]Detection, len(r.Detections))
		copy(cp.Detections, r.Detections)
	}
	return &cp
}
