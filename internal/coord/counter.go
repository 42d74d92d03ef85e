package coord

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Counter is the durable global loop counter: one integer in a file under
// the state directory, surviving coordinator restarts. Increment is
// read-modify-write; callers must hold the assign lock.
type Counter struct {
	path string
}

// NewCounter returns the counter stored at stateDir/loops.count.
func NewCounter(stateDir string) *Counter {
	return &Counter{path: filepath.Join(stateDir, "loops.count")}
}

// Value reads the current count. A missing file reads as zero.
func (c *Counter) Value() (int64, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading loop counter: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing loop counter %q: %w", strings.TrimSpace(string(data)), err)
	}
	return n, nil
}

// Increment bumps the count by one and returns the new value. The caller
// must hold the assign lock; the write itself is atomic via rename.
func (c *Counter) Increment() (int64, error) {
	n, err := c.Value()
	if err != nil {
		return 0, err
	}
	n++
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return 0, fmt.Errorf("writing loop counter: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(n, 10)+"\n"), 0o644); err != nil {
		return 0, fmt.Errorf("writing loop counter: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return 0, fmt.Errorf("writing loop counter: %w", err)
	}
	return n, nil
}
