package app

import "alltech-erp/internal/core"

// PartiesResult holds a list of customers and suppliers.
type PartiesResult struct {
	Parties []core.Party `json:"parties"`
}

// RecomputeResult reports the status of one order after a recompute.
type RecomputeResult struct {
	OrderID int              `json:"order_id"`
	Status  core.OrderStatus `json:"status"`
}

// RecomputeAllResult reports a full recompute sweep.
type RecomputeAllResult struct {
	Changed int `json:"changed"`
}
