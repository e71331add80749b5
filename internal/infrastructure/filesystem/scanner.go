package filesystem

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// Scanner ищет папки с изображениями
type Scanner struct {
	logger   *slog.Logger
	progress port.ProgressFunc
}

// NewScanner создаёт сканер
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// SetProgressCallback задаёт обработчик прогресса
func (s *Scanner) SetProgressCallback(fn port.ProgressFunc) {
	s.progress = fn
}

// Scan возвращает папки с изображениями в порядке обхода.
// Несуществующий корень или файл вместо папки дают пустой результат.
func (s *Scanner) Scan(rootPath string, recursive bool) []*entity.FolderResult {
	results := make([]*entity.FolderResult, 0)

	info, err := os.Stat(rootPath)
	if err != nil || !info.IsDir() {
		return results
	}

	var folders []string
	if s.containsImages(rootPath) {
		folders = append(folders, rootPath)
	}

	if recursive {
		root := filepath.Clean(rootPath)
		// Корень-ссылку раскрываем для обхода, пути отдаём под исходным префиксом.
		walkRoot := root
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			walkRoot = resolved
		}
		_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Нечитаемые папки пропускаем, обход продолжается.
				s.logger.Debug("skip unreadable directory", "path", path, "error", err)
				return nil
			}
			if !d.IsDir() || path == walkRoot {
				return nil
			}
			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return nil
			}
			if s.containsImages(path) {
				folders = append(folders, filepath.Join(root, rel))
			}
			return nil
		})
	}

	total := len(folders)
	for i, folderPath := range folders {
		if s.progress != nil {
			s.progress(i, total, folderPath)
		}

		folder := entity.NewFolderResult(folderPath)
		for _, imagePath := range s.imageFiles(folderPath) {
			folder.Images = append(folder.Images, entity.NewImageResult(imagePath))
		}
		folder.UpdateCounts()

		if len(folder.Images) > 0 {
			results = append(results, folder)
		}
	}

	if s.progress != nil {
		s.progress(total, total, "")
	}

	return results
}

// containsImages проверяет, есть ли в папке хоть один файл изображения
func (s *Scanner) containsImages(folderPath string) bool {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if isImageEntry(folderPath, entry) {
			return true
		}
	}
	return false
}

// imageFiles возвращает отсортированные пути изображений папки
func (s *Scanner) imageFiles(folderPath string) []string {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		s.logger.Debug("skip unreadable directory", "path", folderPath, "error", err)
		return nil
	}

	var files []string
	for _, entry := range entries {
		if isImageEntry(folderPath, entry) {
			files = append(files, filepath.Join(folderPath, entry.Name()))
		}
	}
	sort.Strings(files)
	return files
}

// isImageEntry true для обычного файла (или ссылки на него) с поддерживаемым расширением
func isImageEntry(dir string, entry fs.DirEntry) bool {
	if !entity.IsImageFile(entry.Name()) {
		return false
	}
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		return err == nil && info.Mode().IsRegular()
	}
	return false
}

var _ port.FolderScanner = (*Scanner)(nil)
