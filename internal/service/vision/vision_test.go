package vision

import (
	"image"
	"image/color"
	"io"
	"testing"

	"platewatch/internal/logger"

	"gocv.io/x/gocv"
)

// testFrame renders a gray frame with a white box at x and encodes it as JPEG.
func testFrame(t *testing.T, x int) []byte {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(60, 60, 60, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer mat.Close()

	if err := gocv.Rectangle(&mat, image.Rect(x, 20, x+60, 100), color.RGBA{R: 255, G: 255, B: 255}, -1); err != nil {
		t.Fatalf("Failed to draw test frame: %v", err)
	}
	data, err := encode(mat)
	if err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}
	return data
}

func newTestService() *Service {
	return NewService(logger.New(io.Discard), 100)
}

func TestDecodable(t *testing.T) {
	s := newTestService()

	if !s.Decodable(testFrame(t, 10)) {
		t.Error("Expected a real JPEG to be decodable")
	}
	if s.Decodable([]byte{0xFF, 0xD8, 'n', 'o', 'p', 'e', 0xFF, 0xD9}) {
		t.Error("Expected marker-only garbage to be rejected")
	}
}

func TestBinarize(t *testing.T) {
	s := newTestService()

	out, err := s.Binarize(testFrame(t, 10))
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}

	mat, err := gocv.IMDecode(out, gocv.IMReadUnchanged)
	if err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	defer mat.Close()
	if mat.Channels() != 1 {
		t.Errorf("Expected a single-channel image, got %d channels", mat.Channels())
	}

	if _, err := s.Binarize([]byte("not an image")); err == nil {
		t.Error("Expected an error for invalid input")
	}
}

func TestAnnotate(t *testing.T) {
	s := newTestService()

	out, err := s.Annotate(testFrame(t, 10), "ABC123 0.95")
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if !s.Decodable(out) {
		t.Error("Expected annotated output to be a valid image")
	}
}

func TestChanged(t *testing.T) {
	s := newTestService()
	defer s.Close()

	first := testFrame(t, 10)
	changed, err := s.Changed(first)
	if err != nil || !changed {
		t.Fatalf("Expected first frame to count as changed, got %v (%v)", changed, err)
	}

	changed, err = s.Changed(first)
	if err != nil || changed {
		t.Errorf("Expected identical frame to be unchanged, got %v (%v)", changed, err)
	}

	changed, err = s.Changed(testFrame(t, 90))
	if err != nil || !changed {
		t.Errorf("Expected moved box to count as changed, got %v (%v)", changed, err)
	}
}
