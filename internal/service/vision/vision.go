package vision

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"platewatch/internal/logger"

	"gocv.io/x/gocv"
)

const (
	// DefaultChangeThreshold is the number of changed pixels that counts as a new scene.
	DefaultChangeThreshold = 500
	// pixelDelta is the per-pixel intensity difference that counts as a change.
	pixelDelta = 30
)

// Service decodes, checks and annotates JPEG frames with OpenCV.
type Service struct {
	logger *logger.Logger

	// change detection state, shared by the single recognition loop
	previousMat     gocv.Mat
	hasPrevious     bool
	changeThreshold int
	mutex           sync.Mutex
}

func NewService(logger *logger.Logger, changeThreshold int) *Service {
	if changeThreshold <= 0 {
		changeThreshold = DefaultChangeThreshold
	}
	return &Service{logger: logger, changeThreshold: changeThreshold}
}

// Decodable reports whether data decodes to a non-empty image.
func (s *Service) Decodable(data []byte) bool {
	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return false
	}
	defer mat.Close()
	return !mat.Empty()
}

// Binarize converts a frame to a black and white JPEG (Otsu threshold), which
// OCR engines read more reliably than raw camera colour.
func (s *Service) Binarize(data []byte) ([]byte, error) {
	gray, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer gray.Close()

	if gray.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	return encode(thresh)
}

// Annotate stamps label in the top-left corner of the frame.
func (s *Service) Annotate(data []byte, label string) ([]byte, error) {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	rect := image.Rect(0, 0, mat.Cols(), 40)
	if err := gocv.Rectangle(&mat, rect, color.RGBA{A: 0}, -1); err != nil {
		return nil, fmt.Errorf("failed to draw rectangle: %v", err)
	}
	if err := gocv.PutText(&mat, label, image.Pt(10, 28), gocv.FontHersheySimplex, 0.8, red, 2); err != nil {
		return nil, fmt.Errorf("failed to draw text: %v", err)
	}

	out, err := encode(mat)
	if err != nil {
		s.logger.Error("Failed to encode annotated frame: %v", err)
		return nil, err
	}
	return out, nil
}

// Changed compares the frame with the previous one passed to Changed and
// reports whether enough pixels moved. The first frame always counts as changed.
func (s *Service) Changed(data []byte) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return false, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return false, fmt.Errorf("decoded image is empty")
	}

	if !s.hasPrevious || s.previousMat.Rows() != mat.Rows() || s.previousMat.Cols() != mat.Cols() {
		if s.hasPrevious {
			s.previousMat.Close()
		}
		s.previousMat = mat.Clone()
		s.hasPrevious = true
		return true, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(s.previousMat, mat, &diff); err != nil {
		return false, fmt.Errorf("failed to compute absolute difference: %v", err)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, pixelDelta, 255, gocv.ThresholdBinary)

	changedPixels := gocv.CountNonZero(thresh)

	s.previousMat.Close()
	s.previousMat = mat.Clone()

	return changedPixels > s.changeThreshold, nil
}

// Close releases the retained comparison frame.
func (s *Service) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.hasPrevious {
		s.previousMat.Close()
		s.hasPrevious = false
	}
}

func encode(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
