// Package printer renders operator-facing output for the roundcast CLI.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/forecastnet/roundcast/internal/listener"
)

func init() {
	// Force color output even when not connected to TTY.
	// Users can disable with NO_COLOR.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)

	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output, returning a restore func.
func SetOutput(out, errOut io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	return func() {
		mu.Lock()
		defer mu.Unlock()
		stdout, stderr = prevOut, prevErr
	}
}

func writers() (io.Writer, io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	return stdout, stderr
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	out, _ := writers()
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(out, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	out, _ := writers()
	fmt.Fprintf(out, format, a...)
}

// Warning prints a warning message in yellow
func Warning(format string, a ...any) {
	out, _ := writers()
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(out, msg)
}

// Step prints a step message with emphasis
func Step(format string, a ...any) {
	out, _ := writers()
	cyan.Fprintf(out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to stderr and returns a
// plain error carrying only the title, for Cobra.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error plus key/value details printed in order.
func ErrorWithContext(title string, explanation string, context [][2]string, suggestions []string) error {
	_, errOut := writers()
	red.Fprintf(errOut, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(errOut, "%s\n", explanation)
	}
	if len(context) > 0 {
		fmt.Fprintf(errOut, "\n")
		for _, kv := range context {
			fmt.Fprintf(errOut, "  %s: %s\n", kv[0], kv[1])
		}
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(errOut, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(errOut, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(errOut, "Either:\n")
			for i, s := range suggestions {
				fmt.Fprintf(errOut, "  %d. %s\n", i+1, s)
			}
		}
	}
	return fmt.Errorf("%s", title)
}

// Result prints one received result line. The agent label before the first
// colon is highlighted.
func Result(line string) {
	out, _ := writers()
	body, ok := strings.CutPrefix(line, listener.ReceivedPrefix)
	if !ok {
		fmt.Fprintln(out, line)
		return
	}
	fmt.Fprint(out, listener.ReceivedPrefix)
	if head, tail, found := strings.Cut(body, ":"); found {
		bold.Fprint(out, head+":")
		fmt.Fprintln(out, tail)
		return
	}
	fmt.Fprintln(out, body)
}

// SummaryRow is one line of the round summary table.
type SummaryRow struct {
	Round   int
	Channel string
	Results int
	Parsed  int
	Mean    float64
}

// Summary prints a per-round table. Rounds without a parsed likelihood show
// a dash in the mean column.
func Summary(rows []SummaryRow) {
	out, _ := writers()
	bold.Fprintf(out, "%-6s %-20s %8s %8s %8s\n", "ROUND", "CHANNEL", "RESULTS", "PARSED", "MEAN")
	for _, r := range rows {
		mean := "-"
		if r.Parsed > 0 {
			mean = fmt.Sprintf("%.1f%%", r.Mean)
		}
		line := fmt.Sprintf("%-6d %-20s %8d %8d %8s\n", r.Round, r.Channel, r.Results, r.Parsed, mean)
		if r.Results == 0 {
			yellow.Fprint(out, line)
			continue
		}
		fmt.Fprint(out, line)
	}
}

// Println prints a plain message
func Println(a ...any) {
	out, _ := writers()
	fmt.Fprintln(out, a...)
}
