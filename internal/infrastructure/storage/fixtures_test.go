package storage

import (
	"time"

	"vision-batch/internal/domain/entity"
)

func sampleRun() *entity.Run {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	cats := entity.NewFolderResult("/data/cats")
	first := entity.NewImageResult("/data/cats/1.jpg")
	first.Processed = true
	first.Metadata = "File: 1.jpg"
	first.Detections = []entity.Detection{
		entity.NewDetection(entity.Box{X: 1, Y: 2, Width: 30, Height: 40}, 0.75, 15, "cat"),
		entity.NewDetection(entity.Box{X: 50, Y: 60, Width: 10, Height: 10}, 0.5, 0, "person"),
	}
	second := entity.NewImageResult("/data/cats/2.jpg")
	second.Processed = true
	second.Metadata = "Error processing image: corrupt file"
	cats.Images = []*entity.ImageResult{first, second}
	cats.UpdateCounts()
	cats.Processed = true

	dogs := entity.NewFolderResult("/data/dogs")
	dogs.Images = []*entity.ImageResult{entity.NewImageResult("/data/dogs/a.png")}
	dogs.UpdateCounts()

	return &entity.Run{
		RootPath: "/data",
		Stats: entity.ProcessingStats{
			TotalFolders:     2,
			ProcessedFolders: 1,
			TotalImages:      3,
			ProcessedImages:  2,
			TotalDetections:  2,
			StartedAt:        started,
			FinishedAt:       started.Add(3 * time.Second),
		},
		Folders: []*entity.FolderResult{cats, dogs},
	}
}
