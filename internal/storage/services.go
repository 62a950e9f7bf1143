package storage

// Services bundles the services sharing one DB.
type Services struct {
	Tables  *TableService
	Columns *ColumnService
	Rows    *RowService
	Windows *WindowService
	Indexes *IndexManager
}

// NewServices wires every service on top of db.
func NewServices(db *DB) *Services {
	tables := NewTableService(db)
	indexes := NewIndexManager(db)
	columns := NewColumnService(db, tables, indexes)
	return &Services{
		Tables:  tables,
		Columns: columns,
		Rows:    NewRowService(db, tables, columns),
		Windows: NewWindowService(db, columns),
		Indexes: indexes,
	}
}
