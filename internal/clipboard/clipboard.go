// Package clipboard copies text to the system clipboard through whichever
// clipboard tool is installed.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no clipboard tool is installed.
var ErrUnavailable = errors.New("clipboard unavailable")

// tool is a command that reads clipboard contents from stdin.
type tool struct {
	name string
	args []string
}

// candidates returns the clipboard tools for goos, most preferred first.
// Wayland sessions prefer wl-copy.
func candidates(goos string, wayland bool) []tool {
	switch goos {
	case "darwin":
		return []tool{{name: "pbcopy"}}
	case "linux", "freebsd", "openbsd":
		tools := []tool{
			{name: "xclip", args: []string{"-selection", "clipboard"}},
			{name: "xsel", args: []string{"--clipboard", "--input"}},
		}
		if wayland {
			tools = append([]tool{{name: "wl-copy"}}, tools...)
		}
		return tools
	case "windows":
		return []tool{{name: "clip.exe"}}
	default:
		return nil
	}
}

// Copier writes text to the clipboard.
type Copier struct {
	lookPath func(string) (string, error)
	goos     string
	wayland  bool
}

// New returns a Copier for the running system.
func New() *Copier {
	return &Copier{
		lookPath: exec.LookPath,
		goos:     runtime.GOOS,
		wayland:  os.Getenv("WAYLAND_DISPLAY") != "",
	}
}

// find returns the first installed tool.
func (c *Copier) find() (tool, string, bool) {
	for _, t := range candidates(c.goos, c.wayland) {
		if path, err := c.lookPath(t.name); err == nil {
			return t, path, true
		}
	}
	return tool{}, "", false
}

// Available reports whether a clipboard tool is installed.
func (c *Copier) Available() bool {
	_, _, ok := c.find()
	return ok
}

// Copy writes text to the clipboard.
func (c *Copier) Copy(ctx context.Context, text string) error {
	t, path, ok := c.find()
	if !ok {
		return ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, path, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
