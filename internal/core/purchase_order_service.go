package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type purchaseOrderService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	prop *propagator
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
// A nil logger is replaced by a no-op logger.
func NewPurchaseOrderService(pool *pgxpool.Pool, log *zap.Logger) PurchaseOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &purchaseOrderService{pool: pool, log: log, prop: &propagator{log: log}}
}

const orderColumns = `
	po.id, po.po_number, po.order_type, po.customer_supplier_id, COALESCE(cs.name, ''),
	po.status, po.penalty_percentage, po.penalty_amount, po.invoice_no,
	po.created_by, po.approved_by, po.created_at, po.approved_at, po.updated_at`

func scanOrder(row pgx.Row, po *PurchaseOrder) error {
	var orderType, status string
	if err := row.Scan(
		&po.ID, &po.PONumber, &orderType, &po.CustomerSupplierID, &po.PartyName,
		&status, &po.PenaltyPercentage, &po.PenaltyAmount, &po.InvoiceNo,
		&po.CreatedBy, &po.ApprovedBy, &po.CreatedAt, &po.ApprovedAt, &po.UpdatedAt,
	); err != nil {
		return err
	}
	po.OrderType = OrderType(orderType)
	po.Status = OrderStatus(status)
	return nil
}

// loadOrder fetches an order with its items. forUpdate locks the header row
// for the rest of the caller's transaction.
func loadOrder(ctx context.Context, q querier, id int, forUpdate bool) (*PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + `
		FROM purchase_orders po
		LEFT JOIN customers_suppliers cs ON cs.id = po.customer_supplier_id
		WHERE po.id = $1`
	if forUpdate {
		query += " FOR UPDATE OF po"
	}

	po := &PurchaseOrder{}
	if err := scanOrder(q.QueryRow(ctx, query, id), po); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", id, err)
	}

	items, err := loadItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	po.Items = items
	return po, nil
}

const itemColumns = `
	poi.id, poi.purchase_order_id, poi.project_no, poi.part_no, poi.material_no,
	poi.description, poi.uom, poi.quantity, poi.unit_price, poi.total_price,
	poi.lead_time, poi.due_date, poi.delivered_quantity, poi.delivered_unit_price,
	poi.delivered_total_price, poi.penalty_percentage, poi.penalty_amount,
	poi.invoice_no, poi.balance_quantity_undelivered, poi.created_at`

// itemScanTargets returns the Scan destinations matching itemColumns.
func itemScanTargets(it *PurchaseOrderItem) []any {
	return []any{
		&it.ID, &it.PurchaseOrderID, &it.ProjectNo, &it.PartNo, &it.MaterialNo,
		&it.Description, &it.UOM, &it.Quantity, &it.UnitPrice, &it.TotalPrice,
		&it.LeadTime, &it.DueDate, &it.DeliveredQuantity, &it.DeliveredUnitPrice,
		&it.DeliveredTotalPrice, &it.PenaltyPercentage, &it.PenaltyAmount,
		&it.InvoiceNo, &it.BalanceQuantityUndelivered, &it.CreatedAt,
	}
}

func loadItems(ctx context.Context, q querier, orderID int) ([]PurchaseOrderItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+`
		FROM purchase_order_items poi
		WHERE poi.purchase_order_id = $1
		ORDER BY poi.id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch items for purchase order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(itemScanTargets(&it)...); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purchase order item iteration: %w", err)
	}
	return items, nil
}

// normalizeItems validates order lines and rounds quantity and unit price to
// storage precision, so totals are computed from the values actually saved.
func normalizeItems(items []PurchaseOrderItemInput) ([]PurchaseOrderItemInput, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("purchase order must have at least one item: %w", ErrValidation)
	}
	out := make([]PurchaseOrderItemInput, len(items))
	for i, it := range items {
		if it.Quantity.IsNegative() {
			return nil, fmt.Errorf("item %d: quantity must not be negative: %w", i+1, ErrValidation)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("item %d: unit price must not be negative: %w", i+1, ErrValidation)
		}
		if it.PenaltyPercentage != nil && it.PenaltyPercentage.IsNegative() {
			return nil, fmt.Errorf("item %d: penalty percentage must not be negative: %w", i+1, ErrValidation)
		}
		it.Quantity = round2(it.Quantity)
		it.UnitPrice = round2(it.UnitPrice)
		out[i] = it
	}
	return out, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID int, items []PurchaseOrderItemInput) error {
	for i, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items
			            (purchase_order_id, project_no, part_no, material_no, description, uom,
			             quantity, unit_price, total_price, lead_time, due_date,
			             penalty_percentage, balance_quantity_undelivered)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			orderID, it.ProjectNo, it.PartNo, it.MaterialNo, it.Description, it.UOM,
			it.Quantity, it.UnitPrice, LineTotal(it.Quantity, it.UnitPrice), it.LeadTime, it.DueDate,
			it.PenaltyPercentage, it.Quantity,
		); err != nil {
			return fmt.Errorf("insert purchase order item %d: %w", i+1, err)
		}
	}
	return nil
}

// checkPartyType fails with ErrValidation unless party id exists and is of
// type want.
func checkPartyType(ctx context.Context, q querier, id int, want OrderType) error {
	var partyType string
	if err := q.QueryRow(ctx,
		"SELECT type FROM customers_suppliers WHERE id = $1", id,
	).Scan(&partyType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("customer/supplier %d not found: %w", id, ErrValidation)
		}
		return fmt.Errorf("validate customer/supplier: %w", err)
	}
	if OrderType(partyType) != want {
		return fmt.Errorf("party %d is a %s, expected %s: %w", id, partyType, want, ErrValidation)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreatePurchaseOrder creates an approved order. Invoices entered before the
// order existed are picked up by the recompute that runs before commit.
func (s *purchaseOrderService) CreatePurchaseOrder(ctx context.Context, in PurchaseOrderInput, userID int) (*PurchaseOrder, error) {
	in.PONumber = strings.TrimSpace(in.PONumber)
	if in.PONumber == "" {
		return nil, fmt.Errorf("po_number is required: %w", ErrValidation)
	}
	if !in.OrderType.Valid() {
		return nil, fmt.Errorf("order_type %q must be customer or supplier: %w", in.OrderType, ErrValidation)
	}
	if in.PenaltyPercentage != nil && in.PenaltyPercentage.IsNegative() {
		return nil, fmt.Errorf("penalty percentage must not be negative: %w", ErrValidation)
	}
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	in.Items = items

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkPartyType(ctx, tx, in.CustomerSupplierID, in.OrderType); err != nil {
		return nil, err
	}

	var createdBy *int
	if userID > 0 {
		createdBy = &userID
	}

	var orderID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (po_number, order_type, customer_supplier_id, status,
		                             penalty_percentage, created_by, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		in.PONumber, string(in.OrderType), in.CustomerSupplierID, string(StatusApproved),
		in.PenaltyPercentage, createdBy,
	).Scan(&orderID); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("po_number %q already exists: %w", in.PONumber, ErrConflict)
		}
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	if err := insertItems(ctx, tx, orderID, in.Items); err != nil {
		return nil, err
	}

	if _, _, err := s.prop.recomputeTx(ctx, tx, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}

	s.log.Info("purchase order created",
		zap.Int("order_id", orderID), zap.String("po_number", in.PONumber),
		zap.String("order_type", string(in.OrderType)), zap.Int("items", len(in.Items)))
	return s.GetPurchaseOrder(ctx, orderID)
}

// GetPurchaseOrder returns an order with its items.
func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return loadOrder(ctx, s.pool, id, false)
}

func (s *purchaseOrderService) GetPurchaseOrderByNumber(ctx context.Context, poNumber string) (*PurchaseOrder, error) {
	poNumber = strings.TrimSpace(poNumber)
	var id int
	err := s.pool.QueryRow(ctx, `SELECT id FROM purchase_orders WHERE po_number = $1`, poNumber).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %q: %w", poNumber, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %q: %w", poNumber, err)
	}
	return loadOrder(ctx, s.pool, id, false)
}

// ListPurchaseOrders returns a page of orders, newest first.
func (s *purchaseOrderService) ListPurchaseOrders(ctx context.Context, f PurchaseOrderFilter) (*PurchaseOrderList, error) {
	page, limit := normalizePaging(f.Page, f.Limit, 500)

	where := " WHERE 1=1"
	var args []any
	if f.OrderType != "" {
		args = append(args, string(f.OrderType))
		where += fmt.Sprintf(" AND po.order_type = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND po.status = $%d", len(args))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, likePattern(search))
		where += fmt.Sprintf(" AND (po.po_number ILIKE $%d OR cs.name ILIKE $%d)", len(args), len(args))
	}

	from := `
		FROM purchase_orders po
		LEFT JOIN customers_suppliers cs ON cs.id = po.customer_supplier_id`

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count purchase orders: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := "SELECT " + orderColumns + from + where +
		fmt.Sprintf(" ORDER BY po.created_at DESC, po.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := make([]PurchaseOrder, 0, limit)
	for rows.Next() {
		var po PurchaseOrder
		if err := scanOrder(rows, &po); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purchase order iteration: %w", err)
	}

	return &PurchaseOrderList{Orders: orders, Pagination: NewPage(page, limit, total)}, nil
}

// UpdatePurchaseOrder applies an administrative edit.
func (s *purchaseOrderService) UpdatePurchaseOrder(ctx context.Context, id int, upd PurchaseOrderUpdate) (*PurchaseOrder, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("status %q is not valid: %w", *upd.Status, ErrValidation)
	}
	if upd.PenaltyPercentage != nil && upd.PenaltyPercentage.IsNegative() {
		return nil, fmt.Errorf("penalty percentage must not be negative: %w", ErrValidation)
	}
	if upd.Items != nil {
		items, err := normalizeItems(upd.Items)
		if err != nil {
			return nil, err
		}
		upd.Items = items
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := loadOrder(ctx, tx, id, true); err != nil {
		return nil, err
	}

	switch {
	case upd.ClearPenalty:
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_orders SET penalty_percentage = NULL, penalty_amount = NULL, updated_at = NOW() WHERE id = $1",
			id,
		); err != nil {
			return nil, fmt.Errorf("clear penalty on purchase order %d: %w", id, err)
		}
	case upd.PenaltyPercentage != nil:
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_orders SET penalty_percentage = $1, updated_at = NOW() WHERE id = $2",
			*upd.PenaltyPercentage, id,
		); err != nil {
			return nil, fmt.Errorf("set penalty on purchase order %d: %w", id, err)
		}
	}

	if upd.Items != nil {
		if _, err := tx.Exec(ctx, "DELETE FROM purchase_order_items WHERE purchase_order_id = $1", id); err != nil {
			return nil, fmt.Errorf("replace items on purchase order %d: %w", id, err)
		}
		if err := insertItems(ctx, tx, id, upd.Items); err != nil {
			return nil, err
		}
	}

	// Item delivered fields are always re-derived; a status override is then
	// applied on top.
	if _, _, err := s.prop.recomputeTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if upd.Status != nil {
		if _, err := tx.Exec(ctx,
			"UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2",
			string(*upd.Status), id,
		); err != nil {
			return nil, fmt.Errorf("override status on purchase order %d: %w", id, err)
		}
		s.log.Info("purchase order status set by administrative edit",
			zap.Int("order_id", id), zap.String("status", string(*upd.Status)))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order update: %w", err)
	}
	return s.GetPurchaseOrder(ctx, id)
}

// DeletePurchaseOrder removes an order; its items cascade.
func (s *purchaseOrderService) DeletePurchaseOrder(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM purchase_orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete purchase order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order %d: %w", id, ErrNotFound)
	}
	s.log.Info("purchase order deleted", zap.Int("order_id", id))
	return nil
}

// RecomputeOrderStatus re-derives one order's delivery state in its own transaction.
func (s *purchaseOrderService) RecomputeOrderStatus(ctx context.Context, id int) (OrderStatus, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, status, err := s.prop.recomputeTx(ctx, tx, id)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit recompute for purchase order %d: %w", id, err)
	}
	return status, nil
}

// RecomputeAllOrders sweeps every order. A failure on one order is collected
// and the sweep carries on.
func (s *purchaseOrderService) RecomputeAllOrders(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM purchase_orders ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("list purchase order ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("collect purchase order ids: %w", err)
	}

	changed := 0
	var errs []error
	for _, id := range ids {
		prev, cur, err := s.recomputeOne(ctx, id)
		if err != nil {
			s.log.Error("recompute purchase order failed", zap.Int("order_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("purchase order %d: %w", id, err))
			continue
		}
		if prev != cur {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

func (s *purchaseOrderService) recomputeOne(ctx context.Context, id int) (OrderStatus, OrderStatus, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	prev, cur, err := s.prop.recomputeTx(ctx, tx, id)
	if err != nil {
		return "", "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", "", fmt.Errorf("commit recompute: %w", err)
	}
	return prev, cur, nil
}

// CreateParty creates a customer or supplier.
func (s *purchaseOrderService) CreateParty(ctx context.Context, in PartyInput) (*Party, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("type %q must be customer or supplier: %w", in.Type, ErrValidation)
	}

	p := &Party{Name: in.Name, Type: in.Type, Email: in.Email, Phone: in.Phone}
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO customers_suppliers (name, type, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		in.Name, string(in.Type), in.Email, in.Phone,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert customer/supplier: %w", err)
	}
	return p, nil
}

// ListParties lists parties by name, optionally restricted to one type.
func (s *purchaseOrderService) ListParties(ctx context.Context, partyType OrderType) ([]Party, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, email, phone, created_at
		FROM customers_suppliers
		WHERE ($1 = '' OR type = $1)
		ORDER BY name, id`,
		string(partyType),
	)
	if err != nil {
		return nil, fmt.Errorf("list customers/suppliers: %w", err)
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		var p Party
		var t string
		if err := rows.Scan(&p.ID, &p.Name, &t, &p.Email, &p.Phone, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer/supplier: %w", err)
		}
		p.Type = OrderType(t)
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customer/supplier iteration: %w", err)
	}
	return parties, nil
}

// likePattern wraps s for a substring ILIKE match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
