// Package launcher opens queue items in the web editor.
package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/debuglog"
	"github.com/pders01/reviewq/internal/queue"
	"github.com/pders01/reviewq/internal/validation"
)

// fallbackOpeners are tried in order when no opener is configured.
var fallbackOpeners = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open", "sensible-browser", "x-www-browser"},
	"windows": {"start"},
}

// Launcher implements queue.Navigator by opening editor URLs with a
// platform command.
type Launcher struct {
	baseURL string
	opener  []string
	start   func(cmd *exec.Cmd) error
}

func New(cfg config.EditorConfig) (*Launcher, error) {
	base, err := validation.NewEndpointValidator().Normalize(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("editor base URL: %w", err)
	}

	opener := strings.Fields(cfg.Opener)
	if len(opener) == 0 {
		if cmd := findCommand(fallbackOpeners[runtime.GOOS]...); cmd != "" {
			opener = []string{cmd}
		}
	}

	return &Launcher{
		baseURL: base,
		opener:  opener,
		start:   startDetached,
	}, nil
}

// URL returns the address target opens at.
func (l *Launcher) URL(target queue.Target) string {
	return target.URL(l.baseURL)
}

// Navigate opens target in the operator's browser.
func (l *Launcher) Navigate(ctx context.Context, target queue.Target) error {
	if err := validation.ValidateIdentifier(target.Identifier); err != nil {
		return err
	}
	if len(l.opener) == 0 {
		return fmt.Errorf("no application found to open URL")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	link := l.URL(target)
	cmd := l.command(link)

	debuglog.WithFields(map[string]interface{}{
		"identifier": target.Identifier,
		"class":      target.Class,
		"opener":     l.opener[0],
	}).Infof("Opening %s", link)

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.opener[0], err)
	}
	return nil
}

func (l *Launcher) command(link string) *exec.Cmd {
	// start is a cmd.exe builtin, not an executable.
	if l.opener[0] == "start" && runtime.GOOS == "windows" {
		return exec.Command("cmd", "/c", "start", "", link)
	}
	args := append(append([]string{}, l.opener[1:]...), link)
	return exec.Command(l.opener[0], args...)
}

// startDetached runs GUI openers without blocking the caller.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}
