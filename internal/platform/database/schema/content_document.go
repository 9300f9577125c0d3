package schema

// ContentDocumentTable represents the 'content.document' table
type ContentDocumentTable struct {
	Table     string
	ID        string
	Kind      string
	Data      string
	IsActive  string
	IsDeleted string
	AddedBy   string
	UpdatedBy string
	CreatedAt string
	UpdatedAt string
}

// ContentDocument is the schema definition for content.document
var ContentDocument = ContentDocumentTable{
	Table:     "content.document",
	ID:        "id",
	Kind:      "kind",
	Data:      "data",
	IsActive:  "isactive",
	IsDeleted: "isdeleted",
	AddedBy:   "addedby",
	UpdatedBy: "updatedby",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names
func (t ContentDocumentTable) Columns() []string {
	return []string{
		t.ID, t.Kind, t.Data, t.IsActive, t.IsDeleted, t.AddedBy, t.UpdatedBy, t.CreatedAt, t.UpdatedAt,
	}
}
