package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"nanohub/internal/types"

	"go.uber.org/zap"
)

// Runner executes command scripts with sanitized arguments and bounded
// timeouts. Dispatch failures travel inside the returned CommandResult,
// never as errors, so batch operations can continue past them.
type Runner struct {
	config *Config
	logger *zap.Logger
}

// RunOptions overrides per-call execution behavior
type RunOptions struct {
	Timeout   time.Duration // 0 means the configured default
	ScriptDir string        // preferred resolution directory
	WorkDir   string        // working directory, defaults to the script's directory
}

// NewRunner creates a new runner
func NewRunner(cfg *Config, logger *zap.Logger) *Runner {
	cfg.SetDefaults()
	return &Runner{
		config: cfg,
		logger: logger,
	}
}

// Run executes a command script with the given arguments. Arguments are
// sanitized individually; empty arguments are dropped.
func (r *Runner) Run(ctx context.Context, script string, args []string, opts *RunOptions) types.CommandResult {
	if opts == nil {
		opts = &RunOptions{}
	}

	scriptPath := r.findScript(script, opts.ScriptDir)
	if scriptPath == "" {
		return types.CommandResult{
			Success:    false,
			ReturnCode: -1,
			Error:      fmt.Sprintf("script not found: %s", script),
		}
	}

	argv := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "" {
			continue
		}
		if clean := Sanitize(arg); clean != "" {
			argv = append(argv, clean)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = r.config.DefaultTimeout
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(scriptPath)
	}

	r.logger.Info("Executing command",
		zap.String("script", scriptPath),
		zap.Strings("args", argv),
		zap.Duration("timeout", timeout))

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, scriptPath, argv...)
	cmd.Dir = workDir
	cmd.Env = r.subprocessEnv()
	// Do not wait on inherited pipes after the process is killed
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		r.logger.Error("Command timed out",
			zap.String("script", script),
			zap.Duration("timeout", timeout))
		return types.CommandResult{
			Success:    false,
			ReturnCode: -1,
			Error:      fmt.Sprintf("command timed out after %s", timeout),
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return types.CommandResult{
				Success:     false,
				Output:      string(output),
				ReturnCode:  exitErr.ExitCode(),
				CommandUUID: ExtractCommandUUID(string(output)),
			}
		}

		r.logger.Error("Command execution failed",
			zap.String("script", script),
			zap.Error(err))
		return types.CommandResult{
			Success:    false,
			ReturnCode: -1,
			Error:      err.Error(),
		}
	}

	return types.CommandResult{
		Success:     true,
		Output:      string(output),
		ReturnCode:  0,
		CommandUUID: ExtractCommandUUID(string(output)),
	}
}

// findScript resolves a script name to a path. Absolute paths are used
// as-is if they exist; relative names are searched across the known
// script directories in order. Returns "" when unresolvable.
func (r *Runner) findScript(script, scriptDir string) string {
	if filepath.IsAbs(script) {
		if _, err := os.Stat(script); err == nil {
			return script
		}
		return ""
	}

	baseDir := scriptDir
	if baseDir == "" {
		baseDir = r.config.CommandsDir
	}
	if path := filepath.Join(baseDir, script); fileExists(path) {
		return path
	}

	for _, dir := range []string{r.config.CommandsDir, r.config.DDMScriptsDir, r.config.ToolsDir} {
		if path := filepath.Join(dir, script); fileExists(path) {
			return path
		}
	}

	return ""
}

// subprocessEnv returns the environment for script execution with the
// configured PATH prefix applied
func (r *Runner) subprocessEnv() []string {
	env := os.Environ()
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + r.config.SubprocessPath + ":" + strings.TrimPrefix(kv, "PATH=")
			return env
		}
	}
	return append(env, "PATH="+r.config.SubprocessPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
