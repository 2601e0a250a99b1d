package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"alltech-erp/internal/app"
)

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("usage")

const usage = `Available: recompute <order-id>, recompute-all, dashboard [search] [as-of YYYY-MM-DD], orders [search]`

// Run executes a one-shot CLI command, writing its output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command\n%s", ErrUsage, usage)
	}

	switch args[0] {
	case "recompute", "rc":
		if len(args) < 2 {
			return fmt.Errorf("%w: app recompute <order-id>", ErrUsage)
		}
		id, err := strconv.Atoi(args[1])
		if err != nil || id < 1 {
			return fmt.Errorf("%w: order id %q must be a positive integer", ErrUsage, args[1])
		}
		result, err := svc.RecomputeOrderStatus(ctx, id)
		if err != nil {
			return fmt.Errorf("recompute order %d: %w", id, err)
		}
		fmt.Fprintf(out, "Order %d status: %s\n", result.OrderID, result.Status)

	case "recompute-all":
		result, err := svc.RecomputeAllOrders(ctx)
		if err != nil {
			if result != nil {
				fmt.Fprintf(out, "Orders changed before failure: %d\n", result.Changed)
			}
			return fmt.Errorf("recompute all: %w", err)
		}
		fmt.Fprintf(out, "Orders changed: %d\n", result.Changed)

	case "dashboard", "dash":
		req := app.DashboardRequest{Limit: 500}
		if len(args) > 1 {
			req.Search = args[1]
		}
		if len(args) > 2 {
			req.AsOfDate = args[2]
		}
		page, err := svc.GetDashboard(ctx, req)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		printDashboard(out, page)

	case "orders":
		req := app.ListPurchaseOrdersRequest{Limit: 100}
		if len(args) > 1 {
			req.Search = args[1]
		}
		result, err := svc.ListPurchaseOrders(ctx, req)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		printOrders(out, result)

	default:
		return fmt.Errorf("%w: unknown command %s\n%s", ErrUsage, args[0], usage)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
