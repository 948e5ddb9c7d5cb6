package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// alprResponse is the JSON report printed by `alpr -j`.
type alprResponse struct {
	Version        float32      `json:"version"`
	DataType       string       `json:"data_type"`
	EpochTime      float64      `json:"epoch_time"`
	ImgWidth       int          `json:"img_width"`
	ImgHeight      int          `json:"img_height"`
	ProcessingTime float64      `json:"processing_time_ms"`
	Results        []alprResult `json:"results"`
}

type alprResult struct {
	Plate           string          `json:"plate"`
	Confidence      float64         `json:"confidence"`
	MatchesTemplate int             `json:"matches_template"`
	PlateIndex      int             `json:"plate_index"`
	Region          string          `json:"region"`
	Candidates      []alprCandidate `json:"candidates"`
}

type alprCandidate struct {
	Plate           string  `json:"plate"`
	Confidence      float64 `json:"confidence"`
	MatchesTemplate int     `json:"matches_template"`
}

// Alpr runs the OpenALPR command line tool, feeding the frame on stdin.
type Alpr struct {
	binary     string
	country    string
	configPath string
	topN       int
}

func NewAlpr(binary, country, configPath string, topN int) *Alpr {
	if topN <= 0 {
		topN = 10
	}
	return &Alpr{binary: binary, country: country, configPath: configPath, topN: topN}
}

func (a *Alpr) args() []string {
	args := []string{"-c", a.country, "-n", strconv.Itoa(a.topN), "-j"}
	if a.configPath != "" {
		args = append(args, "--config", a.configPath)
	}
	return append(args, "-")
}

// Recognize returns the top plate of every detected plate region, in the
// order the engine reported them.
func (a *Alpr) Recognize(ctx context.Context, image []byte) ([]string, error) {
	cmd := exec.CommandContext(ctx, a.binary, a.args()...)
	cmd.Stdin = bytes.NewReader(image)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("run %s: %w (%s)", a.binary, err, strings.TrimSpace(stderr.String()))
	}

	return parseAlprReport(out)
}

func parseAlprReport(out []byte) ([]string, error) {
	var report alprResponse
	if err := json.Unmarshal(bytes.TrimSpace(out), &report); err != nil {
		return nil, fmt.Errorf("parse alpr report: %w", err)
	}

	plates := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		if r.Plate != "" {
			plates = append(plates, r.Plate)
		}
	}
	if len(plates) == 0 {
		return nil, ErrNoDetections
	}
	return plates, nil
}
