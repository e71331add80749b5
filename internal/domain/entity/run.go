package entity

// Run завершённый запуск обработки, который сохраняется в репозиторий
type Run struct {
	ID       int64           // идентификатор в хранилище
	RootPath string          // корневая папка запуска
	Stats    ProcessingStats // итоговая статистика
	Folders  []*FolderResult // результаты по папкам
}
