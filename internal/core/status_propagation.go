package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// propagator re-derives order state from invoices. It never opens its own
// transaction: callers pass the transaction of the write that triggered it, so
// the status change commits or rolls back together with that write.
type propagator struct {
	log *zap.Logger
}

func sideFor(t OrderType) InvoiceSide {
	if t == OrderTypeSupplier {
		return PurchaseInvoices
	}
	return SalesInvoices
}

// propagateTx resolves poNumber to an order of the side's type and recomputes
// it. An empty or unresolvable PO number is not an error.
func (p *propagator) propagateTx(ctx context.Context, tx pgx.Tx, side InvoiceSide, poNumber *string) error {
	if poNumber == nil || *poNumber == "" {
		p.log.Debug("invoice not linked to a purchase order; skipping status propagation",
			zap.String("side", side.Name))
		return nil
	}

	var orderID int
	err := tx.QueryRow(ctx, `
		SELECT id FROM purchase_orders
		WHERE po_number = $1 AND order_type = $2
		FOR UPDATE`,
		*poNumber, string(side.OrderType),
	).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			p.log.Debug("no purchase order matches invoice link; skipping status propagation",
				zap.String("side", side.Name), zap.String("po_number", *poNumber))
			return nil
		}
		return fmt.Errorf("resolve purchase order %q: %w", *poNumber, err)
	}

	if _, _, err := p.recomputeTx(ctx, tx, orderID); err != nil {
		return err
	}
	return nil
}

// recomputeTx locks the order, reconciles it against every linked invoice
// line and writes back only what changed. It returns the status before and
// after.
func (p *propagator) recomputeTx(ctx context.Context, tx pgx.Tx, orderID int) (OrderStatus, OrderStatus, error) {
	order, err := loadOrder(ctx, tx, orderID, true)
	if err != nil {
		return "", "", err
	}

	lines, err := loadLinkedLines(ctx, tx, sideFor(order.OrderType), order.PONumber)
	if err != nil {
		return "", "", err
	}

	rec := Reconcile(order, lines)

	for i, after := range rec.Items {
		if !itemChanged(order.Items[i], after) {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_order_items
			SET delivered_quantity           = $1,
			    delivered_unit_price         = $2,
			    delivered_total_price        = $3,
			    total_price                  = $4,
			    balance_quantity_undelivered = $5,
			    penalty_amount               = $6,
			    invoice_no                   = $7
			WHERE id = $8`,
			after.DeliveredQuantity, after.DeliveredUnitPrice, after.DeliveredTotalPrice,
			after.TotalPrice, after.BalanceQuantityUndelivered, after.PenaltyAmount,
			after.InvoiceNo, after.ID,
		); err != nil {
			return "", "", fmt.Errorf("update purchase order item %d: %w", after.ID, err)
		}
	}

	headerChanged := rec.Status != order.Status ||
		derefStr(rec.InvoiceNo) != derefStr(order.InvoiceNo) ||
		!decimalPtrEqual(rec.PenaltyAmount, order.PenaltyAmount)
	if headerChanged {
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_orders
			SET status = $1, invoice_no = $2, penalty_amount = $3, updated_at = NOW()
			WHERE id = $4`,
			string(rec.Status), rec.InvoiceNo, rec.PenaltyAmount, orderID,
		); err != nil {
			return "", "", fmt.Errorf("update purchase order %d status: %w", orderID, err)
		}
	}

	if len(rec.Unmatched) > 0 {
		p.log.Warn("invoice lines match no item on linked purchase order",
			zap.Int("order_id", orderID), zap.String("po_number", order.PONumber),
			zap.Int("unmatched", len(rec.Unmatched)))
	}
	if rec.Status != order.Status {
		fields := []zap.Field{
			zap.Int("order_id", orderID),
			zap.String("po_number", order.PONumber),
			zap.String("from", string(order.Status)),
			zap.String("to", string(rec.Status)),
			zap.String("ordered_qty", rec.OrderedQty.String()),
			zap.String("delivered_qty", rec.DeliveredQty.String()),
		}
		if rec.Status.Rank() < order.Status.Rank() {
			p.log.Info("purchase order status regressed", fields...)
		} else {
			p.log.Info("purchase order status changed", fields...)
		}
	}

	return order.Status, rec.Status, nil
}

// loadLinkedLines returns every invoice item on the side's invoices that
// reference poNumber, in attribution order.
func loadLinkedLines(ctx context.Context, q querier, side InvoiceSide, poNumber string) ([]InvoiceLine, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT i.id, i.invoice_number, i.invoice_date,
		       it.id, it.project_no, it.part_no, it.material_no, it.description, it.uom,
		       it.quantity, it.unit_price, it.total_amount
		FROM %s i
		JOIN %s it ON it.invoice_id = i.id
		WHERE i.%s = $1
		ORDER BY i.invoice_date, i.id, it.id`,
		side.HeaderTable, side.ItemTable, side.LinkColumn),
		poNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("load %s invoice lines for %q: %w", side.Name, poNumber, err)
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var ln InvoiceLine
		it := &ln.Item
		if err := rows.Scan(
			&ln.InvoiceID, &ln.InvoiceNumber, &ln.InvoiceDate,
			&it.ID, &it.ProjectNo, &it.PartNo, &it.MaterialNo, &it.Description, &it.UOM,
			&it.Quantity, &it.UnitPrice, &it.TotalAmount,
		); err != nil {
			return nil, fmt.Errorf("scan %s invoice line: %w", side.Name, err)
		}
		it.InvoiceID = ln.InvoiceID
		lines = append(lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s invoice line iteration: %w", side.Name, err)
	}
	return lines, nil
}
