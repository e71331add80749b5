package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // Регистрируем декодер WebP

	"vision-batch/internal/domain/entity"
	"vision-batch/internal/domain/port"
)

// goldenAngle шаг оттенка между соседними классами
const goldenAngle = 137.508

// Codec читает изображения с диска и рисует на них детекции
type Codec struct {
	face      font.Face
	thickness int
}

// NewCodec создаёт кодек с рамкой толщиной 2 пикселя
func NewCodec() *Codec {
	return &Codec{
		face:      basicfont.Face7x13,
		thickness: 2,
	}
}

// Load читает файл и учитывает EXIF-ориентацию
func (c *Codec) Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", filepath.Base(path), err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to load image %s: empty image", filepath.Base(path))
	}
	return img, nil
}

// Annotate рисует рамки и подписи на копии изображения
func (c *Codec) Annotate(img image.Image, detections []entity.Detection) image.Image {
	if img == nil {
		return nil
	}
	annotated := imaging.Clone(img)
	for _, det := range detections {
		c.drawDetection(annotated, det)
	}
	return annotated
}

// Save записывает изображение; формат по расширению, неизвестный заменяется на PNG
func (c *Codec) Save(path string, img image.Image) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Metadata текстовое описание файла и найденных объектов
func (c *Codec) Metadata(path string, img image.Image, detections []entity.Detection) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File: %s\n", filepath.Base(path))
	fmt.Fprintf(&b, "Path: %s\n", path)

	if img != nil {
		bounds := img.Bounds()
		fmt.Fprintf(&b, "Dimensions: %d x %d\n", bounds.Dx(), bounds.Dy())
		fmt.Fprintf(&b, "Channels: %d\n", channels(img))
	}

	if info, err := os.Stat(path); err == nil {
		fmt.Fprintf(&b, "File Size: %.2f KB\n", float64(info.Size())/1024.0)
	} else {
		b.WriteString("File Size: Unknown\n")
	}

	fmt.Fprintf(&b, "\nDetections: %d\n", len(detections))
	if len(detections) > 0 {
		b.WriteString("\nDetailed Results:\n")
		for i, det := range detections {
			fmt.Fprintf(&b, "  %d. %s (confidence: %.1f%%)\n", i+1, det.ClassName, det.Confidence*100)
			fmt.Fprintf(&b, "     Box: [%d, %d, %d, %d]\n", det.Box.X, det.Box.Y, det.Box.Width, det.Box.Height)
		}
	}

	return b.String()
}

// ClassColor стабильный цвет для класса
func ClassColor(classID int) color.Color {
	hue := math.Mod(float64(max(classID, 0))*goldenAngle, 360)
	return colorful.Hsv(hue, 0.75, 0.95).Clamped()
}

func (c *Codec) drawDetection(dst *image.NRGBA, det entity.Detection) {
	col := ClassColor(det.ClassID)
	r := det.Box.Rect()
	t := c.thickness

	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), col)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), col)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), col)
	fillRect(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), col)

	label := fmt.Sprintf("%s %.0f%%", det.ClassName, det.Confidence*100)
	metrics := c.face.Metrics()
	textWidth := font.MeasureString(c.face, label).Ceil()
	textHeight := metrics.Height.Ceil()

	// Подпись над рамкой, а если не помещается, то внутри неё.
	top := r.Min.Y - textHeight - 4
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	strip := image.Rect(r.Min.X, top, r.Min.X+textWidth+4, top+textHeight+4)
	fillRect(dst, strip, col)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: c.face,
		Dot:  fixed.P(strip.Min.X+2, strip.Min.Y+2+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(label)
}

func fillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// channels число каналов по цветовой модели
func channels(img image.Image) int {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.YCbCrModel:
		return 3
	default:
		return 4
	}
}

var _ port.ImageCodec = (*Codec)(nil)
