package preview

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/rescale/appendix-client/internal/selection"
)

func pngFile(t *testing.T, name string, w, h int) selection.File {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return selection.File{Name: name, Content: buf.Bytes()}
}

func TestRenderFitsInsideBox(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 200, 100, 96, 48},
		{"portrait", 100, 400, 24, 96},
		{"small image is not enlarged", 40, 30, 40, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb, err := Render(pngFile(t, "a.png", tt.w, tt.h), 96)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			b := thumb.Image.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("thumbnail %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			if thumb.Width != tt.w || thumb.Height != tt.h {
				t.Errorf("original %dx%d, want %dx%d", thumb.Width, thumb.Height, tt.w, tt.h)
			}
		})
	}
}

func TestRenderRejectsNonImage(t *testing.T) {
	if _, err := Render(selection.File{Name: "notes.txt", Content: []byte("hello")}, 96); err == nil {
		t.Error("expected decode error")
	}
	if _, err := Render(pngFile(t, "a.png", 10, 10), 0); err == nil {
		t.Error("expected error for zero size")
	}
}

func TestRenderAllKeepsOrderAndFailures(t *testing.T) {
	files := []selection.File{
		pngFile(t, "first.png", 50, 50),
		{Name: "broken.png", Content: []byte("nope")},
		pngFile(t, "third.png", 20, 10),
	}

	thumbs := RenderAll(files, 32)
	if len(thumbs) != 3 {
		t.Fatalf("got %d thumbnails", len(thumbs))
	}
	for i, want := range []string{"first.png", "broken.png", "third.png"} {
		if thumbs[i].Name != want {
			t.Errorf("thumbs[%d].Name = %q, want %q", i, thumbs[i].Name, want)
		}
	}
	if thumbs[1].Err == nil || thumbs[1].Image != nil {
		t.Errorf("broken file should carry an error: %+v", thumbs[1])
	}
	if thumbs[0].Err != nil || thumbs[2].Err != nil {
		t.Error("valid files should render")
	}
}
