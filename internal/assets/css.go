package assets

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
)

// CSSBuilder compiles one entry stylesheet into one minified stylesheet.
type CSSBuilder interface {
	Build(ctx context.Context, input, output string) error
}

// CommandCSS runs an external CSS tool as
//
//	<Command...> -i <input> -o <output> --minify
//
// which is the tailwindcss CLI convention.
type CommandCSS struct {
	Command []string
	// Dir is the working directory; the tool resolves its own config from here.
	Dir string
}

// Build implements CSSBuilder.
func (c *CommandCSS) Build(ctx context.Context, input, output string) error {
	if len(c.Command) == 0 {
		return ferrors.ConfigError("css command is empty").Build()
	}
	if _, err := exec.LookPath(c.Command[0]); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryToolchain, "css tool not found").
			WithContext("command", c.Command[0]).Build()
	}

	args := append(append([]string{}, c.Command[1:]...), "-i", input, "-o", output, "--minify")
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running css tool", "command", strings.Join(append([]string{c.Command[0]}, args...), " "))
	err := cmd.Run()

	if out := stdout.String(); out != "" {
		slog.Debug("css tool stdout", "output", out)
	}
	if err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		return ferrors.WrapError(err, ferrors.CategoryToolchain, "css build failed").
			WithContext("command", c.Command[0]).
			WithContext("output", output).Build()
	}
	return nil
}

// BuildCSS compiles input into output with b. A missing input is skipped and
// reported as false.
func BuildCSS(ctx context.Context, b CSSBuilder, input, output string) (bool, error) {
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to stat stylesheet").
			WithContext("path", input).Build()
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create css output directory").
			WithContext("path", filepath.Dir(output)).Build()
	}
	if err := b.Build(ctx, input, output); err != nil {
		return false, err
	}
	return true, nil
}
