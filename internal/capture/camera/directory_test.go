package camera

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestJPEG(t *testing.T, dir, name string, v uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func TestDirectoryCameraCyclesInLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestJPEG(t, dir, "b.jpg", 50)
	writeTestJPEG(t, dir, "a.jpg", 10)
	writeTestJPEG(t, dir, "c.JPG", 90) // extension match is case-insensitive

	cam, err := newDirectoryCamera(Config{
		Source:    SourceDirectory,
		ImageDir:  dir,
		TargetFPS: 1000, // fast, so the test doesn't actually wait ~1s per frame
		EyeSide:   SideLeft,
	})
	if err != nil {
		t.Fatalf("newDirectoryCamera: %v", err)
	}

	var gotFirstPixels []uint8
	for i := 0; i < 6; i++ { // two full cycles of 3 images
		img, _, err := cam.Next()
		if err != nil {
			t.Fatalf("Next() iter %d: %v", i, err)
		}
		gotFirstPixels = append(gotFirstPixels, img.Pix[0])
	}

	want := []uint8{10, 50, 90, 10, 50, 90} // a, b, c, a, b, c
	for i, w := range want {
		if gotFirstPixels[i] != w {
			t.Fatalf("frame %d pixel = %d, want %d (order a,b,c repeating)", i, gotFirstPixels[i], w)
		}
	}
}

func TestDirectoryCameraSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeTestJPEG(t, dir, "a.jpg", 10)
	if err := os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	writeTestJPEG(t, dir, "c.jpg", 90)

	cam, err := newDirectoryCamera(Config{
		Source:    SourceDirectory,
		ImageDir:  dir,
		TargetFPS: 1000,
	})
	if err != nil {
		t.Fatalf("newDirectoryCamera: %v", err)
	}

	img, _, err := cam.Next() // a.jpg
	if err != nil || img.Pix[0] != 10 {
		t.Fatalf("first frame = %v, %v, want pixel 10", img, err)
	}
	img, _, err = cam.Next() // b.jpg is corrupt, silently skipped -> c.jpg
	if err != nil {
		t.Fatalf("Next() after corrupt file: %v", err)
	}
	if img.Pix[0] != 90 {
		t.Fatalf("frame after corrupt file pixel = %d, want 90 (c.jpg)", img.Pix[0])
	}
}

func TestNewDirectoryCameraRejectsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	_, err := newDirectoryCamera(Config{Source: SourceDirectory, ImageDir: dir, TargetFPS: 5})
	if err == nil {
		t.Fatal("newDirectoryCamera on empty dir: want error")
	}
}

func TestDirectoryCameraPacesAtTargetFPS(t *testing.T) {
	dir := t.TempDir()
	writeTestJPEG(t, dir, "a.jpg", 1)
	writeTestJPEG(t, dir, "b.jpg", 2)

	cam, err := newDirectoryCamera(Config{Source: SourceDirectory, ImageDir: dir, TargetFPS: 20})
	if err != nil {
		t.Fatalf("newDirectoryCamera: %v", err)
	}

	start := time.Now()
	for i := 0; i < 4; i++ {
		if _, _, err := cam.Next(); err != nil {
			t.Fatalf("Next() iter %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	// 4 frames at 20fps should take ~150-200ms (first frame is immediate),
	// not 4*50ms=200ms of additional drift-compounding sleep.
	if elapsed < 100*time.Millisecond {
		t.Fatalf("elapsed = %v, want at least ~150ms for 4 frames at 20fps", elapsed)
	}
}
