package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func replCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Plan patterns interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			runInteractive(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

func runInteractive(ctx context.Context, a *app, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "=== Traversal Planner Interactive Mode ===")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  .help     - Show help")
	fmt.Fprintln(out, "  .exit     - Exit")
	fmt.Fprintln(out, "  .explain  - Toggle plan tables")
	fmt.Fprintln(out, "  .cache    - Show plan cache statistics")
	fmt.Fprintln(out, "  [:match ...] - Plan a pattern")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	explain := false

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":

		case line == ".exit":
			return

		case line == ".help":
			fmt.Fprintln(out, "Enter EDN patterns, e.g. [:match [?p :label person] [?x :isa ?p]]")

		case line == ".explain":
			explain = !explain
			fmt.Fprintf(out, "explain %v\n", explain)

		case line == ".cache":
			hits, misses, size := a.planner.Options().Cache.Stats()
			fmt.Fprintf(out, "%d hits, %d misses, %d entries\n", hits, misses, size)

		case strings.HasPrefix(line, "[") || strings.HasPrefix(line, "("):
			// Collect a multi-line pattern
			input := line
			for depth(input) > 0 {
				fmt.Fprint(out, "  ")
				if !scanner.Scan() {
					return
				}
				input += "\n" + scanner.Text()
			}
			if err := a.planAndPrint(ctx, out, input, explain); err != nil {
				fmt.Fprintf(out, "%v\n", err)
			}

		default:
			fmt.Fprintln(out, "Unknown command. Use .help for help.")
		}
	}
}

// depth returns the number of unclosed brackets and parentheses, ignoring
// string literals and comments
func depth(s string) int {
	d := 0
	inString, escaped, inComment := false, false, false
	for _, ch := range s {
		switch {
		case inComment:
			inComment = ch != '\n'
		case inString:
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == ';':
			inComment = true
		case ch == '[' || ch == '(':
			d++
		case ch == ']' || ch == ')':
			d--
		}
	}
	return d
}
