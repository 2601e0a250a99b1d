package core

// CatalogKey identifies "the same thing" across unrelated orders and invoices.
// Two lines refer to the same catalog item iff all five fields are equal;
// there is no trimming, case folding or partial matching.
type CatalogKey struct {
	ProjectNo   string `json:"project_no"`
	PartNo      string `json:"part_no"`
	MaterialNo  string `json:"material_no"`
	Description string `json:"description"`
	UOM         string `json:"uom"`
}

// NewCatalogKey builds a key from nullable columns, treating nil as "".
func NewCatalogKey(projectNo, partNo, materialNo, description, uom *string) CatalogKey {
	return CatalogKey{
		ProjectNo:   derefStr(projectNo),
		PartNo:      derefStr(partNo),
		MaterialNo:  derefStr(materialNo),
		Description: derefStr(description),
		UOM:         derefStr(uom),
	}
}

// Less orders keys field by field. Used for deterministic report paging.
func (k CatalogKey) Less(o CatalogKey) bool {
	a := [...]string{k.ProjectNo, k.PartNo, k.MaterialNo, k.Description, k.UOM}
	b := [...]string{o.ProjectNo, o.PartNo, o.MaterialNo, o.Description, o.UOM}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// String renders the key for logs.
func (k CatalogKey) String() string {
	return k.ProjectNo + "/" + k.PartNo + "/" + k.MaterialNo + "/" + k.Description + "/" + k.UOM
}
