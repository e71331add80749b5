package entity

import (
	"fmt"
	"time"
)

// ProcessingStats счётчики одного запуска обработки
type ProcessingStats struct {
	TotalFolders     int       `json:"total_folders"`
	ProcessedFolders int       `json:"processed_folders"`
	TotalImages      int       `json:"total_images"`
	ProcessedImages  int       `json:"processed_images"`
	TotalDetections  int       `json:"total_detections"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// Start отмечает начало запуска
func (s *ProcessingStats) Start() {
	s.StartedAt = time.Now()
	s.FinishedAt = time.Time{}
}

// Finish отмечает конец запуска
func (s *ProcessingStats) Finish() {
	s.FinishedAt = time.Now()
}

// Elapsed возвращает длительность запуска; для незавершённого считает до текущего момента.
func (s ProcessingStats) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// ImagesPerSecond скорость обработки
func (s ProcessingStats) ImagesPerSecond() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.ProcessedImages) / elapsed
}

// Summary итоговая строка запуска
func (s ProcessingStats) Summary() string {
	return fmt.Sprintf("Completed: %d folders, %d images, %d detections in %.1f seconds",
		s.ProcessedFolders, s.ProcessedImages, s.TotalDetections, s.Elapsed().Seconds())
}
