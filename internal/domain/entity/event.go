package entity

import "fmt"

// EventKind тип события воркера
type EventKind string

const (
	EventScanningStarted     EventKind = "scanning_started"     // Count = число папок
	EventFolderScanned       EventKind = "folder_scanned"       // Path = папка
	EventProcessingStarted   EventKind = "processing_started"   // Count = число изображений
	EventImageProcessed      EventKind = "image_processed"      // Path, Count = число детекций
	EventFolderCompleted     EventKind = "folder_completed"     // Name, Count = детекций в папке
	EventProcessingCompleted EventKind = "processing_completed" // Stats
	EventErrorOccurred       EventKind = "error_occurred"       // Message
)

// Event событие прогресса, которое воркер отдаёт наблюдателям
type Event struct {
	Kind    EventKind        `json:"kind"`
	Path    string           `json:"path,omitempty"`
	Name    string           `json:"name,omitempty"`
	Count   int              `json:"count"`
	Stats   *ProcessingStats `json:"stats,omitempty"`
	Message string           `json:"message,omitempty"`
}

func ScanningStarted(totalFolders int) Event {
	return Event{Kind: EventScanningStarted, Count: totalFolders}
}

func FolderScanned(folderPath string) Event {
	return Event{Kind: EventFolderScanned, Path: folderPath}
}

func ProcessingStarted(totalImages int) Event {
	return Event{Kind: EventProcessingStarted, Count: totalImages}
}

func ImageProcessed(imagePath string, detectionCount int) Event {
	return Event{Kind: EventImageProcessed, Path: imagePath, Count: detectionCount}
}

func FolderCompleted(folderName string, totalDetections int) Event {
	return Event{Kind: EventFolderCompleted, Name: folderName, Count: totalDetections}
}

// ProcessingCompleted копирует статистику, чтобы событие не ссылалось на рабочее состояние
func ProcessingCompleted(stats ProcessingStats) Event {
	return Event{Kind: EventProcessingCompleted, Stats: &stats, Count: stats.ProcessedImages}
}

func ErrorOccurred(message string) Event {
	return Event{Kind: EventErrorOccurred, Message: message}
}

func (e Event) String() string {
	switch e.Kind {
	case EventScanningStarted:
		return fmt.Sprintf("scanning started: %d folders", e.Count)
	case EventFolderScanned:
		return fmt.Sprintf("folder scanned: %s", e.Path)
	case EventProcessingStarted:
		return fmt.Sprintf("processing started: %d images", e.Count)
	case EventImageProcessed:
		return fmt.Sprintf("image processed: %s (%d detections)", e.Path, e.Count)
	case EventFolderCompleted:
		return fmt.Sprintf("folder completed: %s (%d detections)", e.Name, e.Count)
	case EventProcessingCompleted:
		if e.Stats != nil {
			return e.Stats.Summary()
		}
		return "processing completed"
	case EventErrorOccurred:
		return "error: " + e.Message
	default:
		return string(e.Kind)
	}
}
