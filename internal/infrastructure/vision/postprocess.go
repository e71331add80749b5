package vision

import (
	"sort"

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// Candidates параллельные срезы рамок, уверенностей и классов до NMS
type Candidates struct {
	Boxes       []entity.Box
	Confidences []float32
	ClassIDs    []int
}

// Len число кандидатов
func (c Candidates) Len() int {
	return len(c.Boxes)
}

// Decode разбирает строки [cx, cy, w, h, objectness, class_0..class_N]
// и переводит рамки из координат входа модели в координаты изображения.
func Decode(outputs []port.Tensor, imageWidth, imageHeight int, cfg entity.DetectionConfig, classNames []string) Candidates {
	var c Candidates
	if imageWidth <= 0 || imageHeight <= 0 || cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return c
	}

	xFactor := float32(imageWidth) / float32(cfg.InputWidth)
	yFactor := float32(imageHeight) / float32(cfg.InputHeight)

	for _, out := range outputs {
		if out.Cols < 5 {
			continue
		}
		rows := min(out.Rows, len(out.Data)/out.Cols)

		for i := 0; i < rows; i++ {
			row := out.Row(i)

			objectness := row[4]
			if objectness < cfg.ConfidenceThreshold {
				continue
			}

			classID, maxScore := bestClass(row[5:])
			confidence := objectness * maxScore
			if confidence < cfg.ConfidenceThreshold {
				continue
			}

			if !cfg.AcceptsClass(entity.ClassName(classNames, classID)) {
				continue
			}

			centerX := row[0] * xFactor
			centerY := row[1] * yFactor
			width := row[2] * xFactor
			height := row[3] * yFactor

			left := clamp(int(centerX-width/2), 0, imageWidth-1)
			top := clamp(int(centerY-height/2), 0, imageHeight-1)
			right := clamp(int(centerX+width/2), 0, imageWidth-1)
			bottom := clamp(int(centerY+height/2), 0, imageHeight-1)

			c.Boxes = append(c.Boxes, entity.Box{X: left, Y: top, Width: right - left, Height: bottom - top})
			c.Confidences = append(c.Confidences, confidence)
			c.ClassIDs = append(c.ClassIDs, classID)
		}
	}

	return c
}

// bestClass линейный поиск максимума; при равенстве побеждает первый.
// Если все оценки <= 0, возвращает (-1, 0).
func bestClass(scores []float32) (int, float32) {
	bestID := -1
	var bestScore float32
	for j, score := range scores {
		if score > bestScore {
			bestScore = score
			bestID = j
		}
	}
	return bestID, bestScore
}

// NMS жадное подавление немаксимумов без учёта класса.
// Кандидаты со score <= scoreThreshold отбрасываются, остальные сортируются
// по убыванию score (стабильно, равные сохраняют исходный порядок).
// Рамка подавляется, если её IoU с уже оставленной больше nmsThreshold.
// Возвращает индексы оставленных рамок в порядке убывания score.
func NMS(boxes []entity.Box, scores []float32, scoreThreshold, nmsThreshold float32) []int {
	order := make([]int, 0, len(scores))
	for i, score := range scores {
		if score > scoreThreshold {
			order = append(order, i)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	kept := make([]int, 0, len(order))
	for _, idx := range order {
		suppressed := false
		for _, k := range kept {
			if boxes[idx].IoU(boxes[k]) > float64(nmsThreshold) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, idx)
		}
	}
	return kept
}

// PostProcess декодирует выходы модели, применяет NMS и собирает детекции
func PostProcess(outputs []port.Tensor, imageWidth, imageHeight int, cfg entity.DetectionConfig, classNames []string) []entity.Detection {
	candidates := Decode(outputs, imageWidth, imageHeight, cfg, classNames)
	indices := NMS(candidates.Boxes, candidates.Confidences, cfg.ConfidenceThreshold, cfg.NMSThreshold)

	detections := make([]entity.Detection, 0, len(indices))
	for _, idx := range indices {
		classID := candidates.ClassIDs[idx]
		detections = append(detections, entity.NewDetection(
			candidates.Boxes[idx],
			candidates.Confidences[idx],
			classID,
			entity.ClassName(classNames, classID),
		))
	}
	return detections
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
