package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFolderResult_Name(t *testing.T) {
	require.Equal(t, "cats", NewFolderResult("/data/photos/cats").Name)
	require.Equal(t, "cats", NewFolderResult("/data/photos/cats/").Name)
}

func TestFolderResult_UpdateCounts(t *testing.T) {
	f := NewFolderResult("/data/a")
	det := NewDetection(Box{Width: 1, Height: 1}, 0.9, 0, "person")
	f.Images = []*ImageResult{
		{Path: "/data/a/1.jpg", Detections: []Detection{det, det}},
		{Path: "/data/a/2.jpg"},
		{Path: "/data/a/3.jpg", Detections: []Detection{det}},
	}

	require.Zero(t, f.ImageCount)
	f.UpdateCounts()
	require.Equal(t, 3, f.ImageCount)
	require.Equal(t, 3, f.TotalDetections)
	require.Equal(t, "a (3 images, 3 detections)", f.Summary())
}

func TestFolderResult_CloneIsIndependent(t *testing.T) {
	f := NewFolderResult("/data/a")
	f.Images = []*ImageResult{{Path: "/data/a/1.jpg", Detections: []Detection{{ClassName: "cat"}}}}

	cp := f.Clone()
	cp.Images[0].Processed = true
	cp.Images[0].Detections[0].ClassName = "dog"
	cp.Images = append(cp.Images, NewImageResult("/data/a/2.jpg"))

	require.False(t, f.Images[0].Processed)
	require.Equal(t, "cat", f.Images[0].Detections[0].ClassName)
	require.Len(t, f.Images, 1)
}
