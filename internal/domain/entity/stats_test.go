package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProcessingStats_Derived(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s := ProcessingStats{
		ProcessedFolders: 2,
		ProcessedImages:  20,
		TotalDetections:  7,
		StartedAt:        start,
		FinishedAt:       start.Add(4 * time.Second),
	}

	require.Equal(t, 4*time.Second, s.Elapsed())
	require.InDelta(t, 5.0, s.ImagesPerSecond(), 1e-9)
	require.Equal(t, "Completed: 2 folders, 20 images, 7 detections in 4.0 seconds", s.Summary())
}

func TestProcessingStats_NotStarted(t *testing.T) {
	var s ProcessingStats
	require.Zero(t, s.Elapsed())
	require.Zero(t, s.ImagesPerSecond())
}

func TestProcessingCompletedEventCopiesStats(t *testing.T) {
	s := ProcessingStats{ProcessedImages: 3}
	ev := ProcessingCompleted(s)
	s.ProcessedImages = 10

	require.Equal(t, EventProcessingCompleted, ev.Kind)
	require.Equal(t, 3, ev.Stats.ProcessedImages)
}
