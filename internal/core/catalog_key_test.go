package core_test

import (
	"testing"

	"alltech-erp/internal/core"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestNewCatalogKey_NilFieldsBecomeEmpty(t *testing.T) {
	k := core.NewCatalogKey(strp("P1"), nil, strp("M1"), nil, strp("pcs"))
	assert.Equal(t, core.CatalogKey{ProjectNo: "P1", MaterialNo: "M1", UOM: "pcs"}, k)

	// nil and "" resolve to the same key.
	assert.Equal(t, core.NewCatalogKey(nil, nil, nil, nil, nil), core.NewCatalogKey(strp(""), strp(""), strp(""), strp(""), strp("")))
}

func TestCatalogKey_ExactMatchOnly(t *testing.T) {
	base := core.CatalogKey{ProjectNo: "P1", PartNo: "A", MaterialNo: "M", Description: "Bolt", UOM: "pcs"}

	tests := []struct {
		name  string
		other core.CatalogKey
		equal bool
	}{
		{"identical", base, true},
		{"case differs", core.CatalogKey{ProjectNo: "P1", PartNo: "A", MaterialNo: "M", Description: "bolt", UOM: "pcs"}, false},
		{"trailing space", core.CatalogKey{ProjectNo: "P1", PartNo: "A", MaterialNo: "M", Description: "Bolt ", UOM: "pcs"}, false},
		{"uom differs", core.CatalogKey{ProjectNo: "P1", PartNo: "A", MaterialNo: "M", Description: "Bolt", UOM: "box"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, base == tt.other)
		})
	}
}

func TestCatalogKey_Less(t *testing.T) {
	a := core.CatalogKey{ProjectNo: "P1", PartNo: "A"}
	b := core.CatalogKey{ProjectNo: "P1", PartNo: "B"}
	c := core.CatalogKey{ProjectNo: "P2"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
	// Byte order: upper case sorts before lower case.
	assert.True(t, core.CatalogKey{ProjectNo: "Z"}.Less(core.CatalogKey{ProjectNo: "a"}))
}
