package models

// All lists every persisted model in dependency order. Tests and the sqlite
// dev mode feed it to AutoMigrate; Postgres uses the goose migrations.
func All() []any {
	return []any{
		&Product{},
		&Location{},
		&Customer{},
		&StockBalance{},
		&StockMovement{},
		&CashShift{},
		&Order{},
		&OrderLine{},
		&Payment{},
		&Purchase{},
		&PurchaseLine{},
		&DocumentSequence{},
		&OutboxEvent{},
	}
}
