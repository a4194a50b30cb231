package model

// FieldType identifies one of the schema fields a record may carry.
type FieldType string

const (
	FieldName    FieldType = "full_name"
	FieldEmail   FieldType = "email"
	FieldPhone   FieldType = "phone"
	FieldAddress FieldType = "address"
)

// FieldTypes returns the schema fields in a fixed order. Adding a field to the
// schema means adding a constant above, listing it here, and teaching the
// normalizer how to clean it.
func FieldTypes() []FieldType {
	return []FieldType{FieldName, FieldEmail, FieldPhone, FieldAddress}
}

// Record is a raw candidate record as supplied by the ingestion boundary.
// The ID is the only structurally required attribute.
type Record struct {
	ID     string               `json:"id"`
	Fields map[FieldType]string `json:"fields"`
}

// Field returns the raw value for f, or "" if the record does not carry it.
func (r Record) Field(f FieldType) string {
	return r.Fields[f]
}

// NormalizedRecord pairs a record's raw values with their normalized forms.
type NormalizedRecord struct {
	ID   string               `json:"id"`
	Raw  map[FieldType]string `json:"raw"`
	Norm map[FieldType]string `json:"normalized"`
}

// Value returns the normalized value for f, or "" if absent.
func (r NormalizedRecord) Value(f FieldType) string {
	return r.Norm[f]
}
