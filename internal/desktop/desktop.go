// Package desktop performs clipboard writes and URI opens through the host's
// command-line tools.
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

var ErrUnsupported = errors.New("no clipboard or opener tool available")

type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader) error

type command struct {
	name string
	args []string
}

// Desktop implements both the clipboard and the opener.
type Desktop struct {
	goos     string
	run      runFunc
	lookPath func(string) (string, error)
}

func New() *Desktop {
	return &Desktop{goos: runtime.GOOS, run: runCommand, lookPath: exec.LookPath}
}

func (d *Desktop) Open(ctx context.Context, uri string) error {
	var cmd command
	switch d.goos {
	case "darwin":
		cmd = command{name: "open", args: []string{uri}}
	case "windows":
		cmd = command{name: "rundll32", args: []string{"url.dll,FileProtocolHandler", uri}}
	default:
		cmd = command{name: "xdg-open", args: []string{uri}}
	}
	if err := d.run(ctx, cmd.name, cmd.args, nil); err != nil {
		return fmt.Errorf("open %s: %w", uri, err)
	}
	return nil
}

func (d *Desktop) Copy(ctx context.Context, text string) error {
	cmd, err := d.clipboardCommand()
	if err != nil {
		return err
	}
	if err := d.run(ctx, cmd.name, cmd.args, strings.NewReader(text)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

func (d *Desktop) clipboardCommand() (command, error) {
	var candidates []command
	switch d.goos {
	case "darwin":
		candidates = []command{{name: "pbcopy"}}
	case "windows":
		candidates = []command{{name: "clip"}}
	default:
		candidates = []command{
			{name: "wl-copy"},
			{name: "xclip", args: []string{"-selection", "clipboard"}},
			{name: "xsel", args: []string{"--clipboard", "--input"}},
		}
	}
	for _, c := range candidates {
		if _, err := d.lookPath(c.name); err == nil {
			return c, nil
		}
	}
	return command{}, ErrUnsupported
}

func runCommand(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
