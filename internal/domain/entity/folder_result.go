package entity

import (
	"fmt"
	"path/filepath"
)

// FolderResult результаты для одной папки с изображениями
type FolderResult struct {
	Path            string         // путь к папке
	Name            string         // последний сегмент пути
	Images          []*ImageResult // изображения в порядке сканирования
	ImageCount      int            // пересчитывается UpdateCounts
	TotalDetections int            // пересчитывается UpdateCounts
	Processed       bool
}

// NewFolderResult создаёт пустой результат для папки
func NewFolderResult(path string) *FolderResult {
	return &FolderResult{
		Path: path,
		Name: filepath.Base(filepath.Clean(path)),
	}
}

// UpdateCounts пересчитывает ImageCount и TotalDetections.
// Между завершениями изображений счётчики могут быть устаревшими.
func (f *FolderResult) UpdateCounts() {
	f.ImageCount = len(f.Images)
	f.TotalDetections = 0
	for _, img := range f.Images {
		if img != nil {
			f.TotalDetections += img.DetectionCount()
		}
	}
}

// Summary возвращает строку вида "name (3 images, 5 detections)"
func (f *FolderResult) Summary() string {
	return fmt.Sprintf("%s (%d images, %d detections)", f.Name, f.ImageCount, f.TotalDetections)
}

// Clone делает глубокую копию папки вместе с результатами изображений
func (f *FolderResult) Clone() *FolderResult {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Images = make([]*ImageResult, len(f.Images))
	for i, img := range f.Images {
		cp.Images[i] = img.Clone()
	}
	return &cp
}
