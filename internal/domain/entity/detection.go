package entity

import "image"

// Box прямоугольник детекции в пикселях исходного изображения
type Box struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина в пикселях
	Height int // высота в пикселях
}

// Area возвращает площадь прямоугольника
func (b Box) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Rect переводит прямоугольник в image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// IoU считает отношение площади пересечения к площади объединения.
func (b Box) IoU(other Box) float64 {
	left := max(b.X, other.X)
	top := max(b.Y, other.Y)
	right := min(b.X+b.Width, other.X+other.Width)
	bottom := min(b.Y+b.Height, other.Y+other.Height)

	if right <= left || bottom <= top {
		return 0
	}

	inter := (right - left) * (bottom - top)
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Detection один найденный объект. После создания не меняется.
type Detection struct {
	Box        Box     // рамка объекта
	Confidence float32 // уверенность в (0, 1]
	ClassID    int     // индекс класса в списке меток
	ClassName  string  // имя класса или "unknown"
}

// NewDetection создаёт детекцию
func NewDetection(box Box, confidence float32, classID int, className string) Detection {
	return Detection{
		Box:        box,
		Confidence: confidence,
		ClassID:    classID,
		ClassName:  className,
	}
}
