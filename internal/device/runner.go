package device

import (
	"fmt"
	"os/exec"

	"github.com/google/shlex"

	"github.com/dsyorkd/pi-switchd/internal/errors"
	"github.com/dsyorkd/pi-switchd/internal/logger"
)

// CommandRunner launches external commands in the background. Exit
// status is never surfaced; command supervision belongs to the embedding
// environment.
type CommandRunner interface {
	Run(commandLine string) error
}

// ExecRunner is the default CommandRunner backed by os/exec
type ExecRunner struct {
	logger logger.Interface
}

// NewExecRunner creates a new ExecRunner
func NewExecRunner(log logger.Interface) *ExecRunner {
	return &ExecRunner{
		logger: log.WithField("component", "command-runner"),
	}
}

// Run starts the given command line and returns without waiting for it.
// Returns an error only when the command cannot be parsed or started.
func (r *ExecRunner) Run(commandLine string) error {
	args, err := shlex.Split(commandLine)
	if err != nil {
		return errors.Wrapf(err, "failed to parse command %q", commandLine)
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command line")
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start command %q", commandLine)
	}

	r.logger.WithField("command", commandLine).Debug("Command started")

	// Reap the child; the result is deliberately discarded
	go func() { _ = cmd.Wait() }()

	return nil
}
