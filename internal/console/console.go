// Package console implements the line-oriented command loop of the
// ledgerlite binary.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"

	"ledgerlite/internal/core"
	"ledgerlite/internal/export"
	"ledgerlite/internal/importer"
	applog "ledgerlite/internal/log"
	"ledgerlite/internal/services"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

const prompt = "> "

// Console reads commands from in and writes results to out.
type Console struct {
	svc      *services.LedgerService
	importer *importer.CSVImporter
	// sheets is nil when Google Sheets export is not configured.
	sheets export.ReportExporter
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

type Option func(*Console)

// WithSheets enables `export report <period> sheets`.
func WithSheets(exp export.ReportExporter) Option {
	return func(c *Console) { c.sheets = exp }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) { c.logger = logger }
}

func New(svc *services.LedgerService, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		svc:    svc,
		in:     in,
		out:    out,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(applog.FieldComponent, applog.ComponentConsole)
	c.importer = importer.NewCSVImporter(svc, svc.Engine().Currency(), c.logger)
	return c
}

// Run processes commands until input ends, `exit` is entered or ctx is
// cancelled. Input ending is not an error.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	bold.Fprintln(c.out, "LedgerLite, type 'help' for the list of commands")
	for {
		fmt.Fprint(c.out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil {
					return fmt.Errorf("%w: read command: %v", core.ErrIO, err)
				}
				return nil
			}
			if c.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs a single command line and reports whether the user asked to
// quit. Failures are printed, never returned.
func (c *Console) Execute(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	name := strings.ToLower(args[0])
	if name == "exit" || name == "quit" {
		return true
	}

	cmd, ok := commands[name]
	if !ok {
		c.errorf("unknown command %q, type 'help' for the list of commands", args[0])
		return false
	}

	c.logger.DebugContext(ctx, "Executing command", "command", name)
	if err := cmd.run(c, ctx, args[1:]); err != nil {
		c.report(err)
		c.logger.DebugContext(ctx, "Command failed",
			"command", name,
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorType(err))
	}
	return false
}

func (c *Console) report(err error) {
	var (
		budgetErr *core.BudgetExceededError
		verr      *core.ValidationError
		usage     usageError
	)
	switch {
	case errors.As(err, &usage):
		c.errorf("usage: %s", usage.usage)
	case errors.As(err, &budgetErr):
		remaining, _ := budgetErr.Limit.Sub(budgetErr.Spent)
		c.errorf("budget %s %s exceeded: limit %s, spent %s, remaining %s, attempted %s",
			budgetErr.Period, budgetErr.Category, budgetErr.Limit, budgetErr.Spent, remaining, budgetErr.Attempted)
	case errors.As(err, &verr):
		c.errorf("%s", verr.Error())
	default:
		c.errorf("%v", err)
	}
}

func (c *Console) errorf(format string, args ...any) {
	red.Fprintf(c.out, "Error: "+format+"\n", args...)
}

func (c *Console) successf(format string, args ...any) {
	green.Fprintf(c.out, "  → "+format+"\n", args...)
}

func (c *Console) warnf(format string, args ...any) {
	yellow.Fprintf(c.out, "  ⚠ "+format+"\n", args...)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// usageError signals that a command was called with the wrong arguments.
type usageError struct{ usage string }

func (e usageError) Error() string { return "usage: " + e.usage }
