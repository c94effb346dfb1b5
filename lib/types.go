package analytics

// Row is one result row keyed by column name. Values are already
// normalized into types encoding/json can represent.
type Row map[string]any

// ResultSet holds the rows of a query in the order the database returned them.
type ResultSet struct {
	// Columns is the column names in select-list order.
	Columns []string
	// Rows is the fetched rows; never nil.
	Rows []Row
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	return len(r.Rows)
}
