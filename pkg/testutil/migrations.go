package testutil

// Migrations returns the supply service schema for tests. The statements
// mirror migrations/schema.sql and must stay in sync with it.
func Migrations() []string {
	return []string{
		// Health units
		`CREATE TABLE IF NOT EXISTS locations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			kind VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT kind_valid CHECK (kind IN ('CAF', 'UBS', 'UPA', 'HOSPITAL'))
		)`,

		// Users (identity comes from the gateway; this is display data)
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			location_id UUID REFERENCES locations(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Drug catalog
		`CREATE TABLE IF NOT EXISTS drugs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			group_name VARCHAR(255) NOT NULL,
			presentation VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Suppliers
		`CREATE TABLE IF NOT EXISTS suppliers (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Lots (immutable, natural key is lot_code + drug + supplier)
		`CREATE TABLE IF NOT EXISTS lots (
			id UUID PRIMARY KEY,
			drug_id UUID NOT NULL REFERENCES drugs(id),
			supplier_id UUID NOT NULL REFERENCES suppliers(id),
			lot_code VARCHAR(100) NOT NULL,
			manufacture_date DATE NOT NULL,
			expiry_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT lots_natural_key UNIQUE (lot_code, drug_id, supplier_id)
		)`,

		// On-hand stock, one row per (location, lot)
		`CREATE TABLE IF NOT EXISTS stock_entries (
			id UUID PRIMARY KEY,
			location_id UUID NOT NULL REFERENCES locations(id),
			lot_id UUID NOT NULL REFERENCES lots(id),
			quantity INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT stock_entries_location_lot UNIQUE (location_id, lot_id),
			CONSTRAINT quantity_non_negative CHECK (quantity >= 0)
		)`,

		// Append-only movement log
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id UUID PRIMARY KEY,
			location_id UUID NOT NULL REFERENCES locations(id),
			lot_id UUID NOT NULL REFERENCES lots(id),
			user_id UUID NOT NULL REFERENCES users(id),
			movement_type VARCHAR(20) NOT NULL,
			quantity INT NOT NULL,
			reference_id UUID,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT movement_type_valid CHECK (movement_type IN
				('RECEIPT', 'TRANSFER_OUT', 'TRANSFER_IN', 'EXPIRY_LOSS', 'DISPENSE'))
		)`,

		// Direct transfers
		`CREATE TABLE IF NOT EXISTS transfers (
			id UUID PRIMARY KEY,
			origin_location_id UUID NOT NULL REFERENCES locations(id),
			destination_location_id UUID NOT NULL REFERENCES locations(id),
			sender_user_id UUID NOT NULL REFERENCES users(id),
			requisition_id UUID,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS transfer_items (
			id UUID PRIMARY KEY,
			transfer_id UUID NOT NULL REFERENCES transfers(id),
			lot_id UUID NOT NULL REFERENCES lots(id),
			quantity INT NOT NULL,
			CONSTRAINT transfer_quantity_positive CHECK (quantity > 0)
		)`,

		// Requisitions
		`CREATE TABLE IF NOT EXISTS requisitions (
			id UUID PRIMARY KEY,
			requesting_location_id UUID NOT NULL REFERENCES locations(id),
			requesting_user_id UUID NOT NULL REFERENCES users(id),
			status VARCHAR(20) NOT NULL DEFAULT 'AWAITING_REVIEW',
			refusal_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT status_valid CHECK (status IN
				('AWAITING_REVIEW', 'IN_PICKING', 'DISPATCHED', 'RECEIVED_FULL', 'REFUSED'))
		)`,

		`CREATE TABLE IF NOT EXISTS requisition_items (
			id UUID PRIMARY KEY,
			requisition_id UUID NOT NULL REFERENCES requisitions(id),
			drug_id UUID NOT NULL REFERENCES drugs(id),
			quantity_requested INT NOT NULL,
			quantity_approved INT,
			CONSTRAINT requested_quantity_positive CHECK (quantity_requested > 0),
			CONSTRAINT approved_quantity_non_negative CHECK (quantity_approved IS NULL OR quantity_approved >= 0)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_stock_entries_location ON stock_entries(location_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_location_lot ON stock_movements(location_id, lot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requisitions_location ON requisitions(requesting_location_id)`,
	}
}
