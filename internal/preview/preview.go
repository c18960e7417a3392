// Package preview renders the small thumbnails shown next to the selection.
package preview

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/rescale/appendix-client/internal/selection"
)

// Thumbnail is the scaled-down preview of one selected file. Image is nil
// and Err set when the file could not be decoded (webp, corrupt data).
type Thumbnail struct {
	Name   string
	Image  image.Image
	Width  int // original pixel width
	Height int // original pixel height
	Err    error
}

// Render decodes f, applies its EXIF orientation and fits it inside a
// size x size box keeping the aspect ratio.
func Render(f selection.File, size int) (Thumbnail, error) {
	if size <= 0 {
		return Thumbnail{}, fmt.Errorf("invalid thumbnail size %d", size)
	}

	img, err := imaging.Decode(bytes.NewReader(f.Content), imaging.AutoOrientation(true))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to decode %s: %w", f.Name, err)
	}

	bounds := img.Bounds()
	return Thumbnail{
		Name:   f.Name,
		Image:  imaging.Fit(img, size, size, imaging.Lanczos),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// RenderAll renders every file in selection order. Files that fail to
// decode keep their slot with Err set.
func RenderAll(files []selection.File, size int) []Thumbnail {
	thumbs := make([]Thumbnail, len(files))
	for i, f := range files {
		t, err := Render(f, size)
		if err != nil {
			thumbs[i] = Thumbnail{Name: f.Name, Err: err}
			continue
		}
		thumbs[i] = t
	}
	return thumbs
}
