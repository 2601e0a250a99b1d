package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type invoiceService struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	side InvoiceSide
	prop *propagator
}

// NewSalesInvoiceService manages sales tax invoices, which settle customer orders.
func NewSalesInvoiceService(pool *pgxpool.Pool, log *zap.Logger) InvoiceService {
	return newInvoiceService(pool, log, SalesInvoices)
}

// NewPurchaseInvoiceService manages purchase tax invoices, which settle supplier orders.
func NewPurchaseInvoiceService(pool *pgxpool.Pool, log *zap.Logger) InvoiceService {
	return newInvoiceService(pool, log, PurchaseInvoices)
}

func newInvoiceService(pool *pgxpool.Pool, log *zap.Logger, side InvoiceSide) *invoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("side", side.Name))
	return &invoiceService{pool: pool, log: log, side: side, prop: &propagator{log: log}}
}

func (s *invoiceService) Side() InvoiceSide { return s.side }

// normalizeInvoiceItem validates a line and rounds quantity and unit price to
// storage precision before the line total is derived from them.
func normalizeInvoiceItem(in InvoiceItemInput) (InvoiceItemInput, error) {
	if in.Quantity.IsNegative() {
		return in, fmt.Errorf("quantity must not be negative: %w", ErrValidation)
	}
	if in.UnitPrice.IsNegative() {
		return in, fmt.Errorf("unit price must not be negative: %w", ErrValidation)
	}
	in.Quantity = round2(in.Quantity)
	in.UnitPrice = round2(in.UnitPrice)
	return in, nil
}

func (s *invoiceService) insertItem(ctx context.Context, tx pgx.Tx, invoiceID int, in InvoiceItemInput) (*InvoiceItem, error) {
	it := &InvoiceItem{
		InvoiceID:   invoiceID,
		ProjectNo:   in.ProjectNo,
		PartNo:      in.PartNo,
		MaterialNo:  in.MaterialNo,
		Description: in.Description,
		UOM:         in.UOM,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TotalAmount: LineTotal(in.Quantity, in.UnitPrice),
	}
	if err := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (invoice_id, project_no, part_no, material_no, description, uom,
		                quantity, unit_price, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`, s.side.ItemTable),
		invoiceID, it.ProjectNo, it.PartNo, it.MaterialNo, it.Description, it.UOM,
		it.Quantity, it.UnitPrice, it.TotalAmount,
	).Scan(&it.ID); err != nil {
		return nil, fmt.Errorf("insert %s invoice item: %w", s.side.Name, err)
	}
	return it, nil
}

// lockInvoice locks the invoice header and returns its current PO link.
func (s *invoiceService) lockInvoice(ctx context.Context, tx pgx.Tx, id int) (*string, error) {
	var link *string
	err := tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 FOR UPDATE", s.side.LinkColumn, s.side.HeaderTable),
		id,
	).Scan(&link)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s invoice %d: %w", s.side.Name, id, ErrNotFound)
		}
		return nil, fmt.Errorf("lock %s invoice %d: %w", s.side.Name, id, err)
	}
	return link, nil
}

// CreateInvoice stores the header and items, then recomputes the linked order.
func (s *invoiceService) CreateInvoice(ctx context.Context, in InvoiceInput, userID int) (*Invoice, error) {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	if in.InvoiceNumber == "" {
		return nil, fmt.Errorf("invoice_number is required: %w", ErrValidation)
	}
	items := make([]InvoiceItemInput, len(in.Items))
	for i, it := range in.Items {
		norm, err := normalizeInvoiceItem(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		items[i] = norm
	}
	in.Items = items
	if in.InvoiceDate.IsZero() {
		in.InvoiceDate = time.Now()
	}
	link := strPtr(strings.TrimSpace(in.LinkedPONumber))

	var createdBy *int
	if userID > 0 {
		createdBy = &userID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if in.PartyID != nil {
		if err := checkPartyType(ctx, tx, *in.PartyID, s.side.OrderType); err != nil {
			return nil, err
		}
	}

	var id int
	if err := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (invoice_number, %s, %s, invoice_date, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, s.side.HeaderTable, s.side.PartyColumn, s.side.LinkColumn),
		in.InvoiceNumber, in.PartyID, link, in.InvoiceDate, createdBy,
	).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("invoice_number %q already exists: %w", in.InvoiceNumber, ErrConflict)
		}
		return nil, fmt.Errorf("insert %s invoice: %w", s.side.Name, err)
	}

	for i, it := range in.Items {
		if _, err := s.insertItem(ctx, tx, id, it); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
	}

	if len(in.Items) > 0 {
		if err := s.prop.propagateTx(ctx, tx, s.side, link); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s invoice: %w", s.side.Name, err)
	}

	s.log.Info("invoice created",
		zap.Int("invoice_id", id), zap.String("invoice_number", in.InvoiceNumber),
		zap.String("po_number", derefStr(link)), zap.Int("items", len(in.Items)))
	return s.GetInvoice(ctx, id)
}

// GetInvoice returns an invoice with its items.
func (s *invoiceService) GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	inv := &Invoice{Side: s.side.Name}
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, invoice_number, %s, %s, invoice_date, created_by, created_at
		FROM %s WHERE id = $1`, s.side.PartyColumn, s.side.LinkColumn, s.side.HeaderTable),
		id,
	).Scan(&inv.ID, &inv.InvoiceNumber, &inv.PartyID, &inv.LinkedPONumber,
		&inv.InvoiceDate, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s invoice %d: %w", s.side.Name, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s invoice %d: %w", s.side.Name, id, err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, invoice_id, project_no, part_no, material_no, description, uom,
		       quantity, unit_price, total_amount
		FROM %s WHERE invoice_id = $1 ORDER BY id`, s.side.ItemTable),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s invoice items: %w", s.side.Name, err)
	}
	defer rows.Close()

	inv.Items = []InvoiceItem{}
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProjectNo, &it.PartNo, &it.MaterialNo,
			&it.Description, &it.UOM, &it.Quantity, &it.UnitPrice, &it.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan %s invoice item: %w", s.side.Name, err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s invoice item iteration: %w", s.side.Name, err)
	}
	return inv, nil
}

// ListInvoices returns a page of headers, most recent invoice date first.
func (s *invoiceService) ListInvoices(ctx context.Context, f InvoiceFilter) (*InvoiceList, error) {
	page, limit := normalizePaging(f.Page, f.Limit, 500)

	where := " WHERE 1=1"
	var args []any
	if po := strings.TrimSpace(f.LinkedPONumber); po != "" {
		args = append(args, po)
		where += fmt.Sprintf(" AND %s = $%d", s.side.LinkColumn, len(args))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, likePattern(search))
		where += fmt.Sprintf(" AND (invoice_number ILIKE $%d OR %s ILIKE $%d)",
			len(args), s.side.LinkColumn, len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", s.side.HeaderTable)+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s invoices: %w", s.side.Name, err)
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, invoice_number, %s, %s, invoice_date, created_by, created_at
		FROM %s`, s.side.PartyColumn, s.side.LinkColumn, s.side.HeaderTable) + where +
		fmt.Sprintf(" ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s invoices: %w", s.side.Name, err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0, limit)
	for rows.Next() {
		inv := Invoice{Side: s.side.Name}
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PartyID, &inv.LinkedPONumber,
			&inv.InvoiceDate, &inv.CreatedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s invoice: %w", s.side.Name, err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s invoice iteration: %w", s.side.Name, err)
	}

	return &InvoiceList{Invoices: invoices, Pagination: NewPage(page, limit, total)}, nil
}

// UpdateInvoice edits header fields. When the PO link changes, the previously
// linked order loses this invoice's deliveries and the newly linked order
// gains them, both inside this transaction.
func (s *invoiceService) UpdateInvoice(ctx context.Context, id int, upd InvoiceUpdate) (*Invoice, error) {
	if upd.InvoiceNumber != nil {
		n := strings.TrimSpace(*upd.InvoiceNumber)
		if n == "" {
			return nil, fmt.Errorf("invoice_number must not be empty: %w", ErrValidation)
		}
		upd.InvoiceNumber = &n
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	oldLink, err := s.lockInvoice(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	sets := []string{}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.InvoiceNumber != nil {
		add("invoice_number", *upd.InvoiceNumber)
	}
	if upd.PartyID != nil {
		if err := checkPartyType(ctx, tx, *upd.PartyID, s.side.OrderType); err != nil {
			return nil, err
		}
		add(s.side.PartyColumn, *upd.PartyID)
	}
	if upd.InvoiceDate != nil {
		add("invoice_date", *upd.InvoiceDate)
	}
	newLink := oldLink
	if upd.LinkedPONumber != nil {
		newLink = strPtr(strings.TrimSpace(*upd.LinkedPONumber))
		add(s.side.LinkColumn, newLink)
	}

	if len(sets) > 0 {
		args = append(args, id)
		if _, err := tx.Exec(ctx, fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
			s.side.HeaderTable, strings.Join(sets, ", "), len(args)), args...,
		); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("invoice_number %q already exists: %w", derefStr(upd.InvoiceNumber), ErrConflict)
			}
			return nil, fmt.Errorf("update %s invoice %d: %w", s.side.Name, id, err)
		}
	}

	// Attribution depends on invoice date and number too, so the linked order
	// is recomputed on every header edit, not only on relink.
	if err := s.propagateLinks(ctx, tx, oldLink, newLink); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s invoice update: %w", s.side.Name, err)
	}

	if derefStr(oldLink) != derefStr(newLink) {
		s.log.Info("invoice relinked", zap.Int("invoice_id", id),
			zap.String("from_po", derefStr(oldLink)), zap.String("to_po", derefStr(newLink)))
	}
	return s.GetInvoice(ctx, id)
}

// propagateLinks recomputes each distinct non-empty link, in PO number order
// so that concurrent relinks lock orders in a consistent sequence.
func (s *invoiceService) propagateLinks(ctx context.Context, tx pgx.Tx, links ...*string) error {
	seen := map[string]bool{}
	var pos []string
	for _, l := range links {
		po := derefStr(l)
		if po == "" || seen[po] {
			continue
		}
		seen[po] = true
		pos = append(pos, po)
	}
	sort.Strings(pos)
	for _, po := range pos {
		if err := s.prop.propagateTx(ctx, tx, s.side, &po); err != nil {
			return err
		}
	}
	return nil
}

// DeleteInvoice removes the invoice with its items and recomputes the order it
// was linked to. The link is read before the delete.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	link, err := s.lockInvoice(ctx, tx, id)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.side.HeaderTable), id); err != nil {
		return fmt.Errorf("delete %s invoice %d: %w", s.side.Name, id, err)
	}

	if err := s.prop.propagateTx(ctx, tx, s.side, link); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s invoice delete: %w", s.side.Name, err)
	}
	s.log.Info("invoice deleted", zap.Int("invoice_id", id), zap.String("po_number", derefStr(link)))
	return nil
}

// AddItem appends a line to an invoice.
func (s *invoiceService) AddItem(ctx context.Context, invoiceID int, in InvoiceItemInput) (*InvoiceItem, error) {
	in, err := normalizeInvoiceItem(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	link, err := s.lockInvoice(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}

	it, err := s.insertItem(ctx, tx, invoiceID, in)
	if err != nil {
		return nil, err
	}

	if err := s.prop.propagateTx(ctx, tx, s.side, link); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s invoice item: %w", s.side.Name, err)
	}
	return it, nil
}

// UpdateItem replaces an invoice line's fields.
func (s *invoiceService) UpdateItem(ctx context.Context, invoiceID, itemID int, in InvoiceItemInput) (*InvoiceItem, error) {
	in, err := normalizeInvoiceItem(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	link, err := s.lockInvoice(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}

	it := &InvoiceItem{
		ID:          itemID,
		InvoiceID:   invoiceID,
		ProjectNo:   in.ProjectNo,
		PartNo:      in.PartNo,
		MaterialNo:  in.MaterialNo,
		Description: in.Description,
		UOM:         in.UOM,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TotalAmount: LineTotal(in.Quantity, in.UnitPrice),
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET project_no = $1, part_no = $2, material_no = $3, description = $4, uom = $5,
		    quantity = $6, unit_price = $7, total_amount = $8
		WHERE id = $9 AND invoice_id = $10`, s.side.ItemTable),
		it.ProjectNo, it.PartNo, it.MaterialNo, it.Description, it.UOM,
		it.Quantity, it.UnitPrice, it.TotalAmount, itemID, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s invoice item %d: %w", s.side.Name, itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%s invoice item %d on invoice %d: %w", s.side.Name, itemID, invoiceID, ErrNotFound)
	}

	if err := s.prop.propagateTx(ctx, tx, s.side, link); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit %s invoice item update: %w", s.side.Name, err)
	}
	return it, nil
}

// DeleteItem removes one invoice line.
func (s *invoiceService) DeleteItem(ctx context.Context, invoiceID, itemID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	link, err := s.lockInvoice(ctx, tx, invoiceID)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = $1 AND invoice_id = $2", s.side.ItemTable),
		itemID, invoiceID,
	)
	if err != nil {
		return fmt.Errorf("delete %s invoice item %d: %w", s.side.Name, itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s invoice item %d on invoice %d: %w", s.side.Name, itemID, invoiceID, ErrNotFound)
	}

	if err := s.prop.propagateTx(ctx, tx, s.side, link); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s invoice item delete: %w", s.side.Name, err)
	}
	return nil
}
