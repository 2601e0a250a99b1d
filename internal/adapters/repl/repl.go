package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"alltech-erp/internal/adapters/cli"
	"alltech-erp/internal/app"
)

// Run starts the interactive loop. Each line is a slash command dispatched
// through the one-shot CLI; it returns when input ends or on /exit.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out, "Order reconciliation console")
	fmt.Fprintln(out, "Use /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				fmt.Fprintln(out)
				return
			}
			continue
		}

		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return
		case "help", "h":
			printHelp(out)
			continue
		}

		if dispErr := cli.Run(ctx, svc, tokens, out); dispErr != nil {
			if errors.Is(dispErr, cli.ErrUsage) {
				fmt.Fprintf(out, "%v  (type /help for all commands)\n", dispErr)
			} else {
				fmt.Fprintf(out, "Error: %v\n", dispErr)
			}
		}
		if err != nil {
			return
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /recompute <order-id>             recompute one order from its linked invoices")
	fmt.Fprintln(out, "  /recompute-all                    recompute every order")
	fmt.Fprintln(out, "  /dashboard [search] [YYYY-MM-DD]  combined supplier/customer rows")
	fmt.Fprintln(out, "  /orders [search]                  list purchase orders")
	fmt.Fprintln(out, "  /help, /exit")
}
