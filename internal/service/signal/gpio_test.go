package signal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func fakeSysfs(t *testing.T, pin string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "gpio"+pin), 0755); err != nil {
		t.Fatalf("Failed to create fake gpio dir: %v", err)
	}
	return root
}

func TestGPIORelay_SetAndState(t *testing.T) {
	root := fakeSysfs(t, "17")

	relay, err := NewGPIORelay(root, 17)
	if err != nil {
		t.Fatalf("NewGPIORelay failed: %v", err)
	}

	direction, _ := os.ReadFile(filepath.Join(root, "gpio17", "direction"))
	if string(direction) != "out" {
		t.Errorf("Expected direction out, got %q", direction)
	}

	if err := relay.Set(context.Background(), true); err != nil {
		t.Fatalf("Set(true) failed: %v", err)
	}
	if on, err := relay.State(); err != nil || !on {
		t.Errorf("Expected relay on, got %v (%v)", on, err)
	}

	if err := relay.Set(context.Background(), false); err != nil {
		t.Fatalf("Set(false) failed: %v", err)
	}
	if on, _ := relay.State(); on {
		t.Error("Expected relay off")
	}
}

func TestGPIORelay_ExportsMissingPin(t *testing.T) {
	root := t.TempDir()

	// Without a kernel nothing creates gpio4 after export, so direction fails.
	if _, err := NewGPIORelay(root, 4); err == nil {
		t.Fatal("Expected error when exported pin never appears")
	}

	data, err := os.ReadFile(filepath.Join(root, "export"))
	if err != nil {
		t.Fatalf("Expected export file to be written: %v", err)
	}
	if string(data) != "4" {
		t.Errorf("Expected pin 4 exported, got %q", data)
	}
}

func TestGPIORelay_InvalidPin(t *testing.T) {
	if _, err := NewGPIORelay(t.TempDir(), -1); err == nil {
		t.Error("Expected error for negative pin")
	}
}

func TestGPIORelay_CancelledContext(t *testing.T) {
	relay, err := NewGPIORelay(fakeSysfs(t, "5"), 5)
	if err != nil {
		t.Fatalf("NewGPIORelay failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := relay.Set(ctx, true); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
