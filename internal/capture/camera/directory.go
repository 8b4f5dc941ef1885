package camera

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// .bmp is enumerated per the configured extension filter but nothing in the
// retrieval pack carries a BMP decoder; image.Decode fails on one and Next's
// transient-skip path takes over, same as any other unreadable file.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".png":  true,
}

// directoryCamera replays a sorted, fixed set of still images from disk at
// a paced frame rate, cycling back to the first image after the last. It is
// the capture agent's offline/test stand-in for a live camera (spec.md §4.1).
//
// Grounded in the teacher's directory-walk + lexicographic-sort idiom from
// modules/framesupplier/framesupplier.go, adapted from a push-to-channel
// supplier into a pull-on-demand Camera.
type directoryCamera struct {
	paths []string
	idx   int

	frameInterval time.Duration
	nextDeadline  time.Time

	eyeSide Side
	isNIR   bool
}

func newDirectoryCamera(cfg Config) (*directoryCamera, error) {
	if cfg.TargetFPS <= 0 {
		return nil, fmt.Errorf("camera: target fps must be > 0, got %v", cfg.TargetFPS)
	}

	var paths []string
	err := filepath.WalkDir(cfg.ImageDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if imageExtensions[ext] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("camera: walking image dir %q: %w", cfg.ImageDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("camera: %q contains no %v images: %w", cfg.ImageDir, sortedExtList(), ErrPermanentFailure)
	}
	sort.Strings(paths)

	return &directoryCamera{
		paths:         paths,
		frameInterval: time.Duration(float64(time.Second) / cfg.TargetFPS),
		eyeSide:       cfg.EyeSide,
		isNIR:         cfg.IsNIR,
	}, nil
}

func sortedExtList() []string {
	exts := make([]string, 0, len(imageExtensions))
	for e := range imageExtensions {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

// Next paces itself against an absolute deadline rather than sleeping a
// fixed interval after each frame: sleeping frameInterval after every frame
// accumulates drift equal to however long decode+caller work took, while
// sleeping until a deadline that advances by exactly frameInterval each
// call keeps the long-run average rate locked to TargetFPS (spec.md §4.1).
//
// A single unreadable file is a transient failure: Next skips it itself,
// without logging and without reporting it to the caller, and moves on to
// the next path. The pacing deadline still
// advances for the skipped frame so a run of bad files doesn't speed up the
// stream (spec.md §9, resolved in favor of "skip costs a frame slot").
func (c *directoryCamera) Next() (*image.Gray, uint64, error) {
	if c.nextDeadline.IsZero() {
		c.nextDeadline = time.Now()
	}

	for {
		now := time.Now()
		if d := c.nextDeadline.Sub(now); d > 0 {
			time.Sleep(d)
		}
		ts := uint64(time.Now().UnixMicro())
		c.nextDeadline = c.nextDeadline.Add(c.frameInterval)

		path := c.paths[c.idx]
		c.idx = (c.idx + 1) % len(c.paths)

		img, err := readGray(path)
		if err != nil {
			continue // transient: skip this file, pacing already advanced
		}
		return img, ts, nil
	}
}

func readGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	if g, ok := src.(*image.Gray); ok {
		return g, nil
	}

	b := src.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, src.At(x, y))
		}
	}
	return gray, nil
}

func (c *directoryCamera) EyeSide() Side { return c.eyeSide }
func (c *directoryCamera) IsNIR() bool   { return c.isNIR }
func (c *directoryCamera) Close() error  { return nil }
