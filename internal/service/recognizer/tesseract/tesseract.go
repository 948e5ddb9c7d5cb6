// Package tesseract reads plates with the Tesseract OCR engine.
package tesseract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"platewatch/internal/service/recognizer"

	"github.com/otiai10/gosseract/v2"
)

const plateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789- "

// Preprocessor prepares a frame for OCR, e.g. grayscale and thresholding.
type Preprocessor func(image []byte) ([]byte, error)

// Recognizer is safe for concurrent use; calls are serialised because the
// underlying Tesseract handle is not.
type Recognizer struct {
	mu         sync.Mutex
	client     *gosseract.Client
	preprocess Preprocessor
	plate      *regexp.Regexp
}

// New creates a Tesseract client for lang. preprocess and plateRegex are optional.
func New(lang string, preprocess Preprocessor, plateRegex string) (*Recognizer, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetWhitelist(plateAlphabet); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR whitelist: %w", err)
	}
	// plates are short isolated strings, not paragraphs
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	r := &Recognizer{client: client, preprocess: preprocess}
	if plateRegex != "" {
		re, err := regexp.Compile(plateRegex)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("invalid plate regex: %w", err)
		}
		r.plate = re
	}
	return r, nil
}

func (r *Recognizer) Recognize(ctx context.Context, image []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.preprocess != nil {
		processed, err := r.preprocess(image)
		if err != nil {
			return nil, fmt.Errorf("preprocess frame: %w", err)
		}
		image = processed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set OCR image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	plates := recognizer.CleanCandidates(strings.Split(text, "\n"), r.plate)
	if len(plates) == 0 {
		return nil, recognizer.ErrNoDetections
	}
	return plates, nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
