package recognizer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// TextDetector is the part of the Rekognition client we use.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Rekognition reads plate text with AWS Rekognition DetectText.
type Rekognition struct {
	client        TextDetector
	plate         *regexp.Regexp
	minConfidence float32
}

// NewRekognition builds a recognizer. plateRegex is optional; when set, only
// cleaned lines that match it are returned.
func NewRekognition(client TextDetector, plateRegex string, minConfidence float32) (*Rekognition, error) {
	if client == nil {
		return nil, fmt.Errorf("rekognition client is required")
	}

	r := &Rekognition{client: client, minConfidence: minConfidence}
	if plateRegex != "" {
		re, err := regexp.Compile(plateRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid plate regex: %w", err)
		}
		r.plate = re
	}
	return r, nil
}

func (r *Rekognition) Recognize(ctx context.Context, image []byte) ([]string, error) {
	result, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect text: %w", err)
	}

	var lines []string
	for _, detection := range result.TextDetections {
		if detection.Type != types.TextTypesLine || detection.DetectedText == nil {
			continue
		}
		if detection.Confidence != nil && *detection.Confidence < r.minConfidence {
			continue
		}
		lines = append(lines, *detection.DetectedText)
	}

	plates := CleanCandidates(lines, r.plate)
	if len(plates) == 0 {
		return nil, ErrNoDetections
	}
	return plates, nil
}
