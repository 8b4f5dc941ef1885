// Package quality implements the capture agent's sharpness gate: a Sobel
// gradient score used to reject blurry frames before they're spent encoding
// and streaming, plus the lossy encode step for frames that pass.
//
// No third-party image-processing library in the retrieval pack offers a
// standalone Sobel operator (the teacher and the rest of the pack do all
// their image work through GStreamer elements or OpenCV at the C++ layer,
// neither of which has a Go-native gradient primitive here), so this stays
// on image/image.Gray + image/jpeg from the standard library.
package quality

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"
)

// Config holds the quality gate's tunables, loaded from the capture TOML
// config's [quality] section.
type Config struct {
	// Threshold in [0,1]; a frame passes iff its score is >= Threshold.
	Threshold float64
	// JPEGQuality in [1,100], passed straight to image/jpeg.
	JPEGQuality int
}

// Score computes the mean Sobel gradient magnitude of img, divided by
// 255*sqrt(2) and clamped to 1, yielding a value in [0,1]. The 3x3 Sobel
// magnitude at one pixel can reach 4*255*sqrt(2), so the divisor is not a
// strict per-pixel maximum and the clamp is what keeps the score <= 1.
func Score(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		// Clamp to the image edges (replicate-border Sobel, same effect as
		// OpenCV's default BORDER_REFLECT_101 for a 3x3 kernel on a mostly
		// uniform border).
		if x < b.Min.X {
			x = b.Min.X
		} else if x >= b.Max.X {
			x = b.Max.X - 1
		}
		if y < b.Min.Y {
			y = b.Min.Y
		} else if y >= b.Max.Y {
			y = b.Max.Y - 1
		}
		return float64(img.GrayAt(x, y).Y)
	}

	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			sum += math.Sqrt(gx*gx + gy*gy)
			n++
		}
	}

	const maxGradient = 255.0 * math.Sqrt2
	mean := sum / float64(n)
	score := mean / maxGradient
	if score > 1 {
		score = 1
	}
	return score
}

// Passes reports whether score meets threshold.
func Passes(score, threshold float64) bool {
	return score >= threshold
}

// Encode compresses img to a lossy JPEG byte stream at the configured
// quality. On failure it returns a nil slice, which the supervisor treats
// as a skip (spec.md §4.3).
func Encode(img *image.Gray, jpegQuality int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil
	}
	return buf.Bytes()
}
