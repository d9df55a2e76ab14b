// Package runner executes external tools locally. Every collaborator of the
// pipeline (make, dkms, mokutil, depmod, modprobe) is treated as a black box
// command whose exit code decides success.
package runner

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/rcraid-tools/rcraidctl/internal/shell"
	log "github.com/sirupsen/logrus"
)

// Command describes a single external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory for the command, empty for inherited.
	Dir string
	// Env contains extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// New creates a Command.
func New(name string, args ...string) *Command {
	return &Command{Name: name, Args: args}
}

// FromString parses a shell-like command line into a Command without
// involving a shell. Used for configured command overrides.
func FromString(cmdline string) (*Command, error) {
	segments, err := shell.Split(cmdline)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return &Command{Name: segments[0], Args: segments[1:]}, nil
}

// String returns a copy-pasteable representation of the command line.
func (c *Command) String() string {
	return shellescape.QuoteCommand(append([]string{c.Name}, c.Args...))
}

func (c *Command) cmd() *exec.Cmd {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	return cmd
}

// Run executes the command, streaming its combined output to the debug log.
// On failure the last lines of output are included in the returned error so
// the operator sees what the tool complained about without digging for logs.
func (c *Command) Run() error {
	log.Debugf("executing: %s", c)

	cmd := c.cmd()
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()

	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		log.Debugf("%s: %s", c.Name, scanner.Text())
	}

	if err != nil {
		return fmt.Errorf("%s: %w%s", c, err, outputTail(buf.String()))
	}

	return nil
}

// RunInteractive executes the command with the process's own stdio attached,
// for tools that prompt the user themselves (mokutil asks for a password).
func (c *Command) RunInteractive() error {
	log.Debugf("executing interactively: %s", c)

	cmd := c.cmd()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}

// Output executes the command and returns its trimmed standard output.
func (c *Command) Output() (string, error) {
	log.Debugf("executing: %s", c)

	cmd := c.cmd()
	var errbuf bytes.Buffer
	cmd.Stderr = &errbuf

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w%s", c, err, outputTail(errbuf.String()))
	}

	return strings.TrimSpace(string(out)), nil
}

const tailLines = 5

func outputTail(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}
	lines := strings.Split(output, "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return " (" + strings.Join(lines, " / ") + ")"
}
