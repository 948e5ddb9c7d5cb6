package recognizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleReport = `{"version":2,"data_type":"alpr_results","epoch_time":1700000000000,"img_width":1280,"img_height":720,"processing_time_ms":85.2,
"results":[
 {"plate":"ABC123","confidence":91.2,"matches_template":0,"plate_index":0,"region":"","candidates":[{"plate":"ABC123","confidence":91.2,"matches_template":0},{"plate":"A8C123","confidence":80.1,"matches_template":0}]},
 {"plate":"XYZ999","confidence":77.0,"matches_template":0,"plate_index":1,"region":"","candidates":[]}
]}`

func TestParseAlprReport(t *testing.T) {
	plates, err := parseAlprReport([]byte(sampleReport))
	if err != nil {
		t.Fatalf("parseAlprReport failed: %v", err)
	}
	if !reflect.DeepEqual(plates, []string{"ABC123", "XYZ999"}) {
		t.Errorf("Expected [ABC123 XYZ999], got %v", plates)
	}
}

func TestParseAlprReport_NoResults(t *testing.T) {
	_, err := parseAlprReport([]byte(`{"version":2,"results":[]}`))
	if !errors.Is(err, ErrNoDetections) {
		t.Errorf("Expected ErrNoDetections, got %v", err)
	}
}

func TestParseAlprReport_Garbage(t *testing.T) {
	_, err := parseAlprReport([]byte("Error loading OpenALPR"))
	if err == nil || IsBenign(err) {
		t.Errorf("Expected a real parse error, got %v", err)
	}
}

func TestAlpr_Args(t *testing.T) {
	a := NewAlpr("alpr", "eu", "/etc/openalpr/openalpr.conf", 0)
	expected := []string{"-c", "eu", "-n", "10", "-j", "--config", "/etc/openalpr/openalpr.conf", "-"}
	if !reflect.DeepEqual(a.args(), expected) {
		t.Errorf("Expected args %v, got %v", expected, a.args())
	}

	bare := NewAlpr("alpr", "us", "", 3)
	if got := strings.Join(bare.args(), " "); got != "-c us -n 3 -j -" {
		t.Errorf("Unexpected args without config: %s", got)
	}
}

// fakeAlpr writes a shell script that records its stdin and prints output.
func fakeAlpr(t *testing.T, output string, exitCode int) (binary, stdinPath string) {
	t.Helper()
	dir := t.TempDir()
	stdinPath = filepath.Join(dir, "stdin")
	outPath := filepath.Join(dir, "out.json")
	if err := os.WriteFile(outPath, []byte(output), 0644); err != nil {
		t.Fatalf("Failed to write fake output: %v", err)
	}

	script := "#!/bin/sh\ncat > " + stdinPath + "\ncat " + outPath + "\nexit " + string(rune('0'+exitCode)) + "\n"
	binary = filepath.Join(dir, "alpr")
	if err := os.WriteFile(binary, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake alpr: %v", err)
	}
	return binary, stdinPath
}

func TestAlpr_RecognizeRunsBinary(t *testing.T) {
	binary, stdinPath := fakeAlpr(t, sampleReport, 0)
	a := NewAlpr(binary, "us", "", 5)

	plates, err := a.Recognize(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !reflect.DeepEqual(plates, []string{"ABC123", "XYZ999"}) {
		t.Errorf("Unexpected plates %v", plates)
	}

	stdin, err := os.ReadFile(stdinPath)
	if err != nil {
		t.Fatalf("Failed to read recorded stdin: %v", err)
	}
	if string(stdin) != "jpeg-bytes" {
		t.Errorf("Expected the frame on stdin, got %q", stdin)
	}
}

func TestAlpr_RecognizeFailingBinary(t *testing.T) {
	binary, _ := fakeAlpr(t, "", 1)
	a := NewAlpr(binary, "us", "", 5)

	_, err := a.Recognize(context.Background(), []byte("jpeg"))
	if err == nil || IsBenign(err) {
		t.Errorf("Expected a hard error from a failing binary, got %v", err)
	}
}

func TestAlpr_RecognizeMissingBinary(t *testing.T) {
	a := NewAlpr(filepath.Join(t.TempDir(), "missing"), "us", "", 5)
	if _, err := a.Recognize(context.Background(), nil); err == nil {
		t.Error("Expected an error for a missing binary")
	}
}
