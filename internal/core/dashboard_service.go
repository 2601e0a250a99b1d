package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type dashboardService struct {
	pool     *pgxpool.Pool
	log      *zap.Logger
	maxLimit int
}

// NewDashboardService constructs a DashboardService. maxLimit caps the page
// size; values below 1 default to 500.
func NewDashboardService(pool *pgxpool.Pool, log *zap.Logger, maxLimit int) DashboardService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxLimit < 1 {
		maxLimit = 500
	}
	return &dashboardService{pool: pool, log: log, maxLimit: maxLimit}
}

// ParseAsOfDate parses a YYYY-MM-DD date in local time. Empty means today.
func ParseAsOfDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of_date %q must be YYYY-MM-DD: %w", s, ErrValidation)
	}
	return t, nil
}

// keyScope is the WHERE clause selecting which catalog keys a request covers.
type keyScope struct {
	where string
	args  []any
}

func newKeyScope(search string, asOfNext time.Time) keyScope {
	sc := keyScope{where: " WHERE po.created_at < $1", args: []any{asOfNext}}
	if search = strings.TrimSpace(search); search != "" {
		sc.args = append(sc.args, likePattern(search))
		n := len(sc.args)
		sc.where += fmt.Sprintf(` AND (poi.project_no ILIKE $%[1]d OR poi.part_no ILIKE $%[1]d
			OR poi.material_no ILIKE $%[1]d OR poi.description ILIKE $%[1]d OR poi.uom ILIKE $%[1]d
			OR po.po_number ILIKE $%[1]d OR cs.name ILIKE $%[1]d)`, n)
	}
	return sc
}

const distinctKeysFrom = `
	SELECT DISTINCT poi.project_no, poi.part_no, poi.material_no, poi.description, poi.uom
	FROM purchase_order_items poi
	JOIN purchase_orders po ON po.id = poi.purchase_order_id
	LEFT JOIN customers_suppliers cs ON cs.id = po.customer_supplier_id`

func (s *dashboardService) countKeys(ctx context.Context, sc keyScope) (int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ("+distinctKeysFrom+sc.where+") k", sc.args...,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("count dashboard keys: %w", err)
	}
	return total, nil
}

// loadKeys returns keys in byte order, which matches CatalogKey.Less.
// A limit of 0 returns every key.
func (s *dashboardService) loadKeys(ctx context.Context, sc keyScope, limit, offset int) ([]CatalogKey, error) {
	args := append([]any{}, sc.args...)
	query := "SELECT project_no, part_no, material_no, description, uom FROM (" +
		distinctKeysFrom + sc.where + `) k
		ORDER BY project_no COLLATE "C", part_no COLLATE "C", material_no COLLATE "C",
		         description COLLATE "C", uom COLLATE "C"`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load dashboard keys: %w", err)
	}
	defer rows.Close()

	var keys []CatalogKey
	for rows.Next() {
		var k CatalogKey
		if err := rows.Scan(&k.ProjectNo, &k.PartNo, &k.MaterialNo, &k.Description, &k.UOM); err != nil {
			return nil, fmt.Errorf("scan dashboard key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard key iteration: %w", err)
	}
	return keys, nil
}

// loadSourceItems fetches every item carrying one of keys, with its parent
// order when the order exists and was created before asOfNext.
func (s *dashboardService) loadSourceItems(ctx context.Context, keys []CatalogKey, asOfNext time.Time) ([]DashboardSourceItem, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cols := make([][]string, 5)
	for _, k := range keys {
		cols[0] = append(cols[0], k.ProjectNo)
		cols[1] = append(cols[1], k.PartNo)
		cols[2] = append(cols[2], k.MaterialNo)
		cols[3] = append(cols[3], k.Description)
		cols[4] = append(cols[4], k.UOM)
	}

	rows, err := s.pool.Query(ctx, `
		WITH keys AS (
			SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[])
			         AS k(project_no, part_no, material_no, description, uom)
		)
		SELECT `+itemColumns+`,
		       po.id, po.po_number, po.order_type, po.status, COALESCE(cs.name, ''),
		       po.penalty_percentage, po.penalty_amount, po.invoice_no, po.created_at
		FROM purchase_order_items poi
		JOIN keys k ON k.project_no = poi.project_no AND k.part_no = poi.part_no
		           AND k.material_no = poi.material_no AND k.description = poi.description
		           AND k.uom = poi.uom
		LEFT JOIN purchase_orders po ON po.id = poi.purchase_order_id
		LEFT JOIN customers_suppliers cs ON cs.id = po.customer_supplier_id
		WHERE po.id IS NULL OR po.created_at < $6
		ORDER BY poi.id`,
		cols[0], cols[1], cols[2], cols[3], cols[4], asOfNext,
	)
	if err != nil {
		return nil, fmt.Errorf("load dashboard items: %w", err)
	}
	defer rows.Close()

	var out []DashboardSourceItem
	for rows.Next() {
		var (
			src                    DashboardSourceItem
			orderID                *int
			poNumber, orderType    *string
			status                 *string
			partyName              string
			penaltyPct, penaltyAmt *decimal.Decimal
			invoiceNo              *string
			createdAt              *time.Time
		)
		dest := append(itemScanTargets(&src.Item),
			&orderID, &poNumber, &orderType, &status, &partyName,
			&penaltyPct, &penaltyAmt, &invoiceNo, &createdAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan dashboard item: %w", err)
		}
		if orderID != nil {
			src.Order = &PurchaseOrder{
				ID:                *orderID,
				PONumber:          derefStr(poNumber),
				OrderType:         OrderType(derefStr(orderType)),
				Status:            OrderStatus(derefStr(status)),
				PartyName:         partyName,
				PenaltyPercentage: penaltyPct,
				PenaltyAmount:     penaltyAmt,
				InvoiceNo:         invoiceNo,
			}
			if createdAt != nil {
				src.Order.CreatedAt = *createdAt
			}
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard item iteration: %w", err)
	}
	return out, nil
}

func (s *dashboardService) rowsFor(ctx context.Context, keys []CatalogKey, asOf time.Time) ([]CombinedRow, error) {
	items, err := s.loadSourceItems(ctx, keys, asOf.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	rows := AggregateDashboard(items, asOf)
	for _, r := range rows {
		if r.Error != "" {
			s.log.Error("dashboard row failed", zap.Stringer("key", r.CatalogKey), zap.String("error", r.Error))
		}
	}
	return rows, nil
}

// GetDashboard returns one page of combined rows.
func (s *dashboardService) GetDashboard(ctx context.Context, f DashboardFilter) (*DashboardPage, error) {
	asOf, err := ParseAsOfDate(f.AsOfDate)
	if err != nil {
		return nil, err
	}
	page, limit := normalizePaging(f.Page, f.Limit, s.maxLimit)

	sc := newKeyScope(f.Search, asOf.AddDate(0, 0, 1))
	total, err := s.countKeys(ctx, sc)
	if err != nil {
		return nil, err
	}
	keys, err := s.loadKeys(ctx, sc, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.rowsFor(ctx, keys, asOf)
	if err != nil {
		return nil, err
	}

	return &DashboardPage{
		Rows:       rows,
		AsOfDate:   asOf.Format(time.DateOnly),
		Pagination: NewPage(page, limit, total),
	}, nil
}
