package importer

// Mode selects how an accepted batch is written to the store.
type Mode int

const (
	// ModeReplacePartition deletes everything under the partition key, then
	// inserts the batch in chunks.
	ModeReplacePartition Mode = iota
	// ModeUpsert writes the batch in one call keyed on Job.KeyField.
	ModeUpsert
)

func (m Mode) String() string {
	switch m {
	case ModeReplacePartition:
		return "replace"
	case ModeUpsert:
		return "upsert"
	default:
		return "unknown"
	}
}

// Record is one accepted row keyed by semantic field name.
type Record map[string]string

// Job describes one kind of import.
type Job struct {
	Name     string
	Fields   []string
	Required []string
	Mode     Mode
	KeyField string // unique within a batch; replace mode falls back to FieldCode
}

// PdvJob loads the point-of-sale catalog of one unit.
var PdvJob = Job{
	Name:     "pdvs",
	Fields:   []string{FieldCode, FieldLabel, FieldDistrict, FieldTaxID, FieldAddress, FieldCity},
	Required: []string{FieldCode, FieldLabel},
	Mode:     ModeReplacePartition,
	KeyField: FieldCode,
}

// ProductJob loads the product catalog, keyed by product code.
var ProductJob = Job{
	Name:     "products",
	Fields:   []string{FieldCode, FieldLabel, FieldCategory, FieldBarcode},
	Required: []string{FieldCode, FieldLabel},
	Mode:     ModeUpsert,
	KeyField: FieldCode,
}

// Jobs indexes the known jobs by name.
var Jobs = map[string]Job{
	PdvJob.Name:     PdvJob,
	ProductJob.Name: ProductJob,
}
