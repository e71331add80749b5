package port

import "vision-batch/internal/domain/entity"

// ProgressFunc получает (текущий, всего, путь); финальный вызов приходит с пустым путём.
type ProgressFunc func(current, total int, path string)

// FolderScanner поиск папок с изображениями
type FolderScanner interface {
	SetProgressCallback(fn ProgressFunc)
	Scan(rootPath string, recursive bool) []*entity.FolderResult
}
