package console

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cqkv/filecabinet"
	"go.uber.org/zap"
)

const prompt = "> "

// Opener opens and locks a file-backed cabinet at path for import and export.
type Opener func(path string) (*filecabinet.FileService, error)

type command struct {
	run         func(c *Console, params string) error
	description string
	explanation string
}

// Console reads one command per line and runs it against a Service.
type Console struct {
	service filecabinet.Service
	open    Opener
	out     io.Writer
	logger  *zap.Logger

	commands map[string]command
	in       *bufio.Scanner
	running  bool
}

func New(service filecabinet.Service, open Opener, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		service:  service,
		open:     open,
		out:      out,
		logger:   logger,
		commands: commandTable(),
		running:  true,
	}
}

// Run executes lines from in until exit or end of input.
func (c *Console) Run(in io.Reader) error {
	c.in = bufio.NewScanner(in)
	defer func() {
		c.in = nil
	}()

	for c.running {
		fmt.Fprint(c.out, prompt)
		if !c.in.Scan() {
			fmt.Fprintln(c.out)
			return c.in.Err()
		}
		c.Execute(c.in.Text())
	}
	return nil
}

// Execute runs one command line. It reports false once exit has run.
func (c *Console) Execute(line string) bool {
	name, params := splitCommand(line)
	if name == "" {
		c.println("Enter a command. Type 'help' to see the available commands.")
		return c.running
	}

	cmd, ok := c.commands[name]
	if !ok {
		c.printf("There is no '%s' command.\n", name)
		return c.running
	}

	if err := cmd.run(c, params); err != nil {
		c.logger.Debug("command failed",
			zap.String("command", name),
			zap.String("kind", filecabinet.ErrorKind(err)),
			zap.Error(err),
		)
		c.println(describe(err))
	}
	return c.running
}

// confirm asks a yes/no question on the input the console is running on.
// Without such input the answer is no.
func (c *Console) confirm(question string) bool {
	c.printf("%s [Y/n] ", question)
	if c.in == nil || !c.in.Scan() {
		c.println()
		return false
	}
	answer := strings.TrimSpace(c.in.Text())
	return answer == "" || strings.EqualFold(answer, "y")
}

func (c *Console) names() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, params, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(params)
}
