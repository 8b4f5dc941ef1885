package quality

import (
	"image"
	"image/color"
	"testing"
)

// TestUniformImageScoresNearZero matches spec.md §8 scenario 3: a uniform
// gray image has (almost) no gradient, so it scores near 0 and is rejected
// at threshold 0.30.
func TestUniformImageScoresNearZero(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	s := Score(img)
	if s < 0 || s > 1 {
		t.Fatalf("Score() = %v, want in [0,1]", s)
	}
	if s > 0.05 {
		t.Fatalf("Score() on uniform image = %v, want ~0", s)
	}
	if Passes(s, 0.30) {
		t.Fatalf("Passes(%v, 0.30) = true, want false for uniform image", s)
	}
}

func TestSharpEdgeScoresHigh(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := byte(0)
			if x >= 16 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	s := Score(img)
	if s <= 0.1 {
		t.Fatalf("Score() on sharp edge = %v, want clearly above 0", s)
	}
	if !Passes(s, 0.05) {
		t.Fatalf("Passes(%v, 0.05) = false, want true for a sharp edge", s)
	}
}

func TestScoreBounds(t *testing.T) {
	// score must stay within [0,1] even for a maximally-contrasting checkerboard
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := byte(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	s := Score(img)
	if s < 0 || s > 1 {
		t.Fatalf("Score() = %v, want in [0,1]", s)
	}
}

func TestEncodeProducesNonEmptyJPEG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	data := Encode(img, 85)
	if len(data) == 0 {
		t.Fatal("Encode() returned empty data for a valid image")
	}
}
