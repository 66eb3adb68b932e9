package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case PlanInvoked:
		return fmt.Sprintf("%s Pattern: %s (%s)",
			latency,
			truncatePattern(stringData(event, "pattern")),
			f.colorizeCount("disjuncts", intData(event, "disjuncts")))

	case PlanConjunction:
		return fmt.Sprintf("%s %s Conjunction %d: %s in %s",
			latency,
			f.colorize("===", color.FgYellow),
			intData(event, "conjunction"),
			f.colorizeCount("fragments", intData(event, "fragments")),
			f.colorizeCount("components", intData(event, "components")))

	case PlanComponent:
		return fmt.Sprintf("%s Component %d: %s, %s",
			latency,
			intData(event, "component"),
			f.colorizeCount("fragments", intData(event, "fragments")),
			f.colorizeCount("nodes", intData(event, "nodes")))

	case PlanArborescence:
		if root := stringData(event, "root"); root != "" {
			return fmt.Sprintf("%s Arborescence rooted at %s spans %s (weight %.3f, %d candidates)",
				latency,
				f.colorize(root, color.FgCyan),
				f.colorizeCount("nodes", intData(event, "spanned")),
				floatData(event, "weight"),
				intData(event, "candidates"))
		}
		return fmt.Sprintf("%s No arborescence (%d candidates)", latency, intData(event, "candidates"))

	case PlanSwept:
		return fmt.Sprintf("%s %s Swept %s outside the arborescence",
			latency,
			f.colorize("!", color.FgYellow),
			f.colorizeCount("fragments", intData(event, "fragments")))

	case PlanInferred:
		return fmt.Sprintf("%s Inferred %s isa %s",
			latency,
			stringData(event, "variable"),
			f.colorize(stringData(event, "type"), color.FgCyan))

	case PlanComplete:
		return fmt.Sprintf("%s %s Traversal planned with %s in %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("fragments", intData(event, "fragments")),
			f.colorizeCount("plans", intData(event, "plans")))

	case CacheHit:
		return fmt.Sprintf("%s Plan cache %s", latency, f.colorize("hit", color.FgGreen))

	case CacheMiss:
		return fmt.Sprintf("%s Plan cache %s", latency, f.colorize("miss", color.FgYellow))

	case ErrorPlannerDefect, ErrorStatistics:
		return fmt.Sprintf("%s %s %s: %v",
			latency,
			f.colorize("✗", color.FgRed),
			event.Name,
			event.Data["error"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 5:
		return color.GreenString(s)
	case ms < 50:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "fragments":
		return color.MagentaString(text)
	case "nodes", "components":
		return color.CyanString(text)
	case "plans", "disjuncts":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func stringData(event Event, key string) string {
	s, _ := event.Data[key].(string)
	return s
}

func intData(event Event, key string) int {
	n, _ := event.Data[key].(int)
	return n
}

func floatData(event Event, key string) float64 {
	x, _ := event.Data[key].(float64)
	return x
}

// truncatePattern shortens long patterns for display.
func truncatePattern(p string) string {
	p = strings.Join(strings.Fields(p), " ")

	const maxLen = 80
	if len(p) <= maxLen {
		return p
	}

	return p[:maxLen-3] + "..."
}

// ConsoleHandler creates a handler that prints formatted events to w.
func ConsoleHandler(w io.Writer) Handler {
	return NewOutputFormatter(w).Handle
}
