// seed loads a small demo data set: one customer order, one supplier order
// for the same part, and a partial delivery on each side.
// Re-running it is harmless; existing orders are left alone.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"alltech-erp/internal/app"
	"alltech-erp/internal/config"
	"alltech-erp/internal/core"
	"alltech-erp/internal/db"
	"alltech-erp/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		zl.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	svc := app.NewAppService(
		core.NewPurchaseOrderService(pool, zl),
		core.NewSalesInvoiceService(pool, zl),
		core.NewPurchaseInvoiceService(pool, zl),
		core.NewDashboardService(pool, zl, cfg.DashboardMaxLimit),
		zl,
	)

	if err := seed(ctx, svc, zl); err != nil {
		zl.Fatal("seed", zap.Error(err))
	}
	zl.Info("seed complete")
}

func seed(ctx context.Context, svc app.ApplicationService, zl *zap.Logger) error {
	customer, err := party(ctx, svc, "Acme Trading", "customer")
	if err != nil {
		return err
	}
	supplier, err := party(ctx, svc, "Steelworks", "supplier")
	if err != nil {
		return err
	}

	due := time.Now().AddDate(0, 0, 30).Format(time.DateOnly)
	bolt := func(qty, price string) app.PurchaseOrderItemRequest {
		return app.PurchaseOrderItemRequest{
			ProjectNo: "PRJ-1", PartNo: "P-10", MaterialNo: "M-5",
			Description: "Hex bolt M8", UOM: "pcs",
			Quantity: qty, UnitPrice: price, LeadTime: "4 weeks", DueDate: due,
		}
	}

	orders := []app.CreatePurchaseOrderRequest{
		{PONumber: "PO-100", OrderType: "customer", CustomerSupplierID: customer, PenaltyPercentage: "5",
			Items: []app.PurchaseOrderItemRequest{bolt("100", "10.00")}},
		{PONumber: "SPO-100", OrderType: "supplier", CustomerSupplierID: supplier,
			Items: []app.PurchaseOrderItemRequest{bolt("120", "6.50")}},
	}
	for _, req := range orders {
		if _, err := svc.CreatePurchaseOrder(ctx, req); err != nil {
			if errors.Is(err, core.ErrConflict) {
				zl.Info("order exists, skipping", zap.String("po_number", req.PONumber))
				return nil
			}
			return err
		}
		zl.Info("created order", zap.String("po_number", req.PONumber))
	}

	invoices := []struct {
		side string
		req  app.CreateInvoiceRequest
	}{
		{"sales", app.CreateInvoiceRequest{InvoiceNumber: "INV-1", PartyID: &customer, LinkedPONumber: "PO-100",
			Items: []app.InvoiceItemRequest{{ProjectNo: "PRJ-1", PartNo: "P-10", MaterialNo: "M-5",
				Description: "Hex bolt M8", UOM: "pcs", Quantity: "40", UnitPrice: "10.00"}}}},
		{"purchase", app.CreateInvoiceRequest{InvoiceNumber: "SINV-1", PartyID: &supplier, LinkedPONumber: "SPO-100",
			Items: []app.InvoiceItemRequest{{ProjectNo: "PRJ-1", PartNo: "P-10", MaterialNo: "M-5",
				Description: "Hex bolt M8", UOM: "pcs", Quantity: "120", UnitPrice: "6.50"}}}},
	}
	for _, inv := range invoices {
		if _, err := svc.CreateInvoice(ctx, inv.side, inv.req); err != nil {
			return err
		}
		zl.Info("created invoice", zap.String("side", inv.side), zap.String("invoice_number", inv.req.InvoiceNumber))
	}
	return nil
}

// party returns the id of the named party, creating it when missing.
func party(ctx context.Context, svc app.ApplicationService, name, partyType string) (int, error) {
	existing, err := svc.ListParties(ctx, partyType)
	if err != nil {
		return 0, err
	}
	for _, p := range existing.Parties {
		if p.Name == name {
			return p.ID, nil
		}
	}
	p, err := svc.CreateParty(ctx, app.CreatePartyRequest{Name: name, Type: partyType})
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}
