package signal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GPIORelay drives a relay through the sysfs GPIO interface.
type GPIORelay struct {
	pin  int
	root string
}

// NewGPIORelay exports pin under root (normally /sys/class/gpio) if needed
// and configures it as an output.
func NewGPIORelay(root string, pin int) (*GPIORelay, error) {
	if pin < 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", pin)
	}
	r := &GPIORelay{pin: pin, root: root}

	if _, err := os.Stat(r.pinDir()); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(pin)), 0644); err != nil {
			return nil, fmt.Errorf("export gpio %d: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(r.pinDir(), "direction"), []byte("out"), 0644); err != nil {
		return nil, fmt.Errorf("set gpio %d direction: %w", pin, err)
	}
	return r, nil
}

func (r *GPIORelay) Set(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(r.valuePath(), []byte(value), 0644); err != nil {
		return fmt.Errorf("write gpio %d: %w", r.pin, err)
	}
	return nil
}

// State reads the current pin value back.
func (r *GPIORelay) State() (bool, error) {
	data, err := os.ReadFile(r.valuePath())
	if err != nil {
		return false, fmt.Errorf("read gpio %d: %w", r.pin, err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}

func (r *GPIORelay) pinDir() string {
	return filepath.Join(r.root, fmt.Sprintf("gpio%d", r.pin))
}

func (r *GPIORelay) valuePath() string {
	return filepath.Join(r.pinDir(), "value")
}
