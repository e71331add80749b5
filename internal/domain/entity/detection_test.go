package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxIoU(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 10, Height: 10}
	b := Box{X: 5, Y: 0, Width: 10, Height: 10}

	// пересечение 50, объединение 150
	require.InDelta(t, 1.0/3.0, a.IoU(b), 1e-9)
	require.InDelta(t, a.IoU(b), b.IoU(a), 1e-9)
	require.Equal(t, 1.0, a.IoU(a))
}

func TestBoxIoU_Disjoint(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 10, Height: 10}
	b := Box{X: 10, Y: 10, Width: 5, Height: 5}
	require.Zero(t, a.IoU(b))
	require.Zero(t, Box{}.IoU(Box{}))
}

func TestClassName(t *testing.T) {
	require.Equal(t, "person", ClassName(DefaultClassNames, 0))
	require.Equal(t, "toothbrush", ClassName(DefaultClassNames, 79))
	require.Equal(t, UnknownClass, ClassName(DefaultClassNames, 80))
	require.Equal(t, UnknownClass, ClassName(DefaultClassNames, -1))
	require.Len(t, DefaultClassNames, 80)
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.Png", "d.bmp", "e.TIFF", "f.tif", "g.webp"} {
		require.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.txt", "b.gif", "noext", "c.jpg.bak"} {
		require.False(t, IsImageFile(name), name)
	}
}
