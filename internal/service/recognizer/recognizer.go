// Package recognizer wraps plate-recognition engines behind one narrow interface.
package recognizer

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// ErrNoDetections means the engine looked at the image and found no plate.
// It is an ordinary outcome, not a failure.
var ErrNoDetections = errors.New("no plate detections")

// Recognizer turns an encoded image into plate-string candidates, best first
// as far as the engine can tell.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
}

// Func adapts a plain function into a Recognizer.
type Func func(ctx context.Context, image []byte) ([]string, error)

func (f Func) Recognize(ctx context.Context, image []byte) ([]string, error) {
	return f(ctx, image)
}

// WithTimeout bounds every call to r by d. A zero d returns r unchanged.
func WithTimeout(r Recognizer, d time.Duration) Recognizer {
	if d <= 0 {
		return r
	}
	return Func(func(ctx context.Context, image []byte) ([]string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			plates []string
			err    error
		}
		done := make(chan result, 1)
		go func() {
			plates, err := r.Recognize(ctx, image)
			done <- result{plates, err}
		}()

		select {
		case res := <-done:
			return res.plates, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// IsBenign reports whether err only means "nothing found".
func IsBenign(err error) bool {
	return errors.Is(err, ErrNoDetections)
}

// CleanCandidates normalises raw OCR lines into plate candidates: uppercase,
// only letters and digits, 2-10 characters, duplicates removed, order kept.
// If plate is non-nil, candidates must also match it.
func CleanCandidates(lines []string, plate *regexp.Regexp) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range lines {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToUpper(r)
			}
			return -1
		}, line)

		if len(cleaned) < 2 || len(cleaned) > 10 || seen[cleaned] {
			continue
		}
		if plate != nil && !plate.MatchString(cleaned) {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}
