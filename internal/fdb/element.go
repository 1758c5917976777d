package fdb

// ListElement is one concrete match produced while resolving a request.
type ListElement struct {
	Key      *Key
	Location Location
	Masked   bool

	schema *Schema
}

// SplitKey returns the key split over the schema levels.
func (e *ListElement) SplitKey() []*Key {
	return e.schema.Split(e.Key)
}

// String renders the element key level by level: {a=1,b=2}{c=3}.
func (e *ListElement) String() string {
	return e.schema.Format(e.Key)
}
