package packager

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// Builder runs the sandboxed packaging tool. Only exit status matters: a nil error
// from Build means the project was packaged.
type Builder interface {
	Build(ctx context.Context, root string) error
	// Teardown releases the sandbox. It runs after every Build, successful or not.
	Teardown(ctx context.Context, root string) error
}

// maxOutputTail bounds how much tool output is kept in error messages.
const maxOutputTail = 4096

// VagrantSPK drives vagrant-spk: `auto <project-type>` to build, `destroy` to tear down.
type VagrantSPK struct {
	Bin         string
	ProjectType string
	// Env is appended to the process environment for both commands.
	Env []string
}

// NewVagrantSPK returns a builder for projectType with experimental features enabled.
func NewVagrantSPK(bin, projectType string) *VagrantSPK {
	if bin == "" {
		bin = "vagrant-spk"
	}
	return &VagrantSPK{
		Bin:         bin,
		ProjectType: projectType,
		Env:         []string{"VAGRANT_SPK_EXPERIMENTAL=Y"},
	}
}

func (v *VagrantSPK) Build(ctx context.Context, root string) error {
	return v.run(ctx, root, "auto", v.ProjectType)
}

func (v *VagrantSPK) Teardown(ctx context.Context, root string) error {
	return v.run(ctx, root, "destroy")
}

func (v *VagrantSPK) run(ctx context.Context, root string, args ...string) error {
	if _, err := exec.LookPath(v.Bin); err != nil {
		return fmt.Errorf("%s not found: %w", v.Bin, err)
	}
	cmd := exec.CommandContext(ctx, v.Bin, args...)
	cmd.Dir = root
	cmd.Env = append(cmd.Environ(), v.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	command := v.Bin + " " + strings.Join(args, " ")
	slog.Info("Running packaging tool", logfields.Command(command), logfields.Path(root))
	err := cmd.Run()

	if out := stdout.String(); out != "" {
		slog.Debug("packaging tool stdout", logfields.Command(command), slog.String("output", tail(out)))
	}
	errStr := stderr.String()
	if errStr != "" {
		slog.Debug("packaging tool stderr", logfields.Command(command), slog.String("error_output", tail(errStr)))
	}
	if err != nil {
		output := errStr
		if output == "" {
			output = stdout.String()
		}
		if output != "" {
			return fmt.Errorf("%s: %w: %s", command, err, tail(output))
		}
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutputTail {
		return s
	}
	return "..." + s[len(s)-maxOutputTail:]
}
