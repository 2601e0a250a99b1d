package core_test

import (
	"testing"

	"alltech-erp/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		ordered   string
		delivered string
		want      core.OrderStatus
	}{
		{"nothing delivered", "10", "0", core.StatusApproved},
		{"below tolerance", "10", "0.005", core.StatusApproved},
		{"negative delivered", "10", "-2", core.StatusApproved},
		{"at tolerance counts as delivery", "10", "0.01", core.StatusPartiallyDelivered},
		{"partial", "10", "4", core.StatusPartiallyDelivered},
		{"just short of tolerance", "10", "9.98", core.StatusPartiallyDelivered},
		{"within tolerance of ordered", "10", "9.99", core.StatusDeliveredCompleted},
		{"exact", "10", "10", core.StatusDeliveredCompleted},
		{"over-delivered", "10", "12", core.StatusDeliveredCompleted},
		{"zero ordered, zero delivered", "0", "0", core.StatusApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.DeriveStatus(dec(tt.ordered), dec(tt.delivered)))
		})
	}
}

func TestOrderStatus_Predicates(t *testing.T) {
	assert.True(t, core.StatusApproved.IsApproved())
	assert.True(t, core.StatusPartiallyDelivered.IsApproved())
	assert.True(t, core.StatusDeliveredCompleted.IsApproved())
	assert.False(t, core.OrderStatus("draft").IsApproved())

	assert.False(t, core.StatusApproved.IsDelivered())
	assert.True(t, core.StatusPartiallyDelivered.IsDelivered())
	assert.True(t, core.StatusDeliveredCompleted.IsDelivered())

	assert.Less(t, core.StatusApproved.Rank(), core.StatusPartiallyDelivered.Rank())
	assert.Less(t, core.StatusPartiallyDelivered.Rank(), core.StatusDeliveredCompleted.Rank())
}

func TestIsSettled(t *testing.T) {
	assert.True(t, core.IsSettled(dec("0")))
	assert.True(t, core.IsSettled(dec("0.009")))
	assert.True(t, core.IsSettled(dec("-0.009")))
	assert.False(t, core.IsSettled(dec("0.01")))
	assert.False(t, core.IsSettled(dec("-1")))
}
