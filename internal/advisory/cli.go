package advisory

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/config"
)

// CLIAdvisor spawns an external CLI process (claude, codex, ollama, etc.)
// with the prompt as the last argument.
type CLIAdvisor struct {
	cfg config.Advisory
}

// NewCLIAdvisor creates an advisor that spawns CLI processes.
func NewCLIAdvisor(cfg config.Advisory) *CLIAdvisor {
	return &CLIAdvisor{cfg: cfg}
}

// Assess runs the command and parses its stdout.
//
// If cmd="claude" and args=["--model", "haiku"], the full command becomes:
// claude --print --model haiku "the prompt text"
func (a *CLIAdvisor) Assess(ctx context.Context, req Request) (*Assessment, error) {
	base := a.cfg.EffectiveArgs()
	args := make([]string, 0, len(base)+1)
	args = append(args, base...)
	args = append(args, BuildPrompt(req))

	timeout := time.Duration(a.cfg.DefaultTimeout()) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.cfg.Cmd, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("advisor %s timed out after %ds", a.cfg.Cmd, int(timeout.Seconds()))
		}
		if stderrStr := strings.TrimSpace(stderr.String()); stderrStr != "" {
			return nil, fmt.Errorf("advisor %s failed: %s", a.cfg.Cmd, stderrStr)
		}
		return nil, fmt.Errorf("advisor %s failed: %w", a.cfg.Cmd, err)
	}

	return ParseAssessment(stdout.String())
}

// CLIAvailable checks if the CLI command exists in PATH.
func CLIAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
