package models

// All returns every persistence model in dependency order. SQLite databases
// are created from it; PostgreSQL schemas come from the SQL migrations.
func All() []any {
	return []any{
		&CustomerModel{},
		&VehicleModel{},
		&CatalogServiceModel{},
		&OrderModel{},
		&OrderDetailModel{},
		&InspectionModel{},
		&FolioSequenceModel{},
		&PaymentModel{},
		&DailyClosingModel{},
		&MonthlyClosingModel{},
		&AuditEntryModel{},
		&OutboxEventModel{},
	}
}
