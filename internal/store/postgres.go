package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ordaro/shipping/pkg/carrier"
)

// OpenPostgres opens a Postgres connection pool for the record store.
func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}

	return db, nil
}

// Postgres is the database-backed implementation of ShipmentStore and
// AttachmentStore.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS shipments (
	id                      TEXT PRIMARY KEY,
	state                   TEXT NOT NULL,
	carrier                 TEXT NOT NULL,
	tracking_number         TEXT NOT NULL DEFAULT '',
	international           BOOLEAN NOT NULL DEFAULT FALSE,
	customer_id             TEXT NOT NULL DEFAULT '',
	customer_code           TEXT NOT NULL DEFAULT '',
	customer_name           TEXT NOT NULL DEFAULT '',
	company_name            TEXT NOT NULL DEFAULT '',
	company_currency        TEXT NOT NULL DEFAULT 'EUR',
	product_code            TEXT NOT NULL DEFAULT '',
	export_type             TEXT NOT NULL DEFAULT '',
	export_type_description TEXT NOT NULL DEFAULT '',
	terms_of_trade          TEXT NOT NULL DEFAULT '',
	invoice_date            DATE,
	sale_date               DATE,
	ship_from               JSONB,
	ship_from_contact       JSONB,
	delivery                JSONB,
	delivery_contact        JSONB
);

CREATE TABLE IF NOT EXISTS shipment_packages (
	id              TEXT PRIMARY KEY,
	shipment_id     TEXT NOT NULL REFERENCES shipments (id),
	weight_kg       DOUBLE PRECISION NOT NULL,
	tracking_number TEXT NOT NULL DEFAULT '',
	position        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS shipment_lines (
	shipment_id        TEXT NOT NULL REFERENCES shipments (id),
	position           INTEGER NOT NULL DEFAULT 0,
	product_name       TEXT NOT NULL,
	quantity           DOUBLE PRECISION NOT NULL,
	unit_customs_value DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS shipment_attachments (
	shipment_id TEXT NOT NULL REFERENCES shipments (id),
	name        TEXT NOT NULL,
	data        BYTEA NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (shipment_id, name)
);
`

// EnsureSchema creates the record store tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutShipment inserts or replaces a shipment record with its packages and
// lines in one transaction.
func (p *Postgres) PutShipment(ctx context.Context, s *Shipment) error {
	shipFrom, err := MarshalAddress(s.ShipFrom)
	if err != nil {
		return fmt.Errorf("put shipment: ship_from: %w", err)
	}
	delivery, err := MarshalAddress(s.Delivery)
	if err != nil {
		return fmt.Errorf("put shipment: delivery: %w", err)
	}
	shipFromContact, err := MarshalContact(s.ShipFromContact)
	if err != nil {
		return fmt.Errorf("put shipment: ship_from_contact: %w", err)
	}
	deliveryContact, err := MarshalContact(s.DeliveryContact)
	if err != nil {
		return fmt.Errorf("put shipment: delivery_contact: %w", err)
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put shipment: begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
	INSERT INTO shipments (
		id, state, carrier, tracking_number, international,
		customer_id, customer_code, customer_name,
		company_name, company_currency,
		product_code, export_type, export_type_description, terms_of_trade,
		invoice_date, sale_date,
		ship_from, ship_from_contact, delivery, delivery_contact
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	ON CONFLICT (id) DO UPDATE SET
		state = EXCLUDED.state,
		carrier = EXCLUDED.carrier,
		tracking_number = EXCLUDED.tracking_number,
		international = EXCLUDED.international,
		customer_id = EXCLUDED.customer_id,
		customer_code = EXCLUDED.customer_code,
		customer_name = EXCLUDED.customer_name,
		company_name = EXCLUDED.company_name,
		company_currency = EXCLUDED.company_currency,
		product_code = EXCLUDED.product_code,
		export_type = EXCLUDED.export_type,
		export_type_description = EXCLUDED.export_type_description,
		terms_of_trade = EXCLUDED.terms_of_trade,
		invoice_date = EXCLUDED.invoice_date,
		sale_date = EXCLUDED.sale_date,
		ship_from = EXCLUDED.ship_from,
		ship_from_contact = EXCLUDED.ship_from_contact,
		delivery = EXCLUDED.delivery,
		delivery_contact = EXCLUDED.delivery_contact;
	`
	if _, err := tx.ExecContext(ctx, upsert,
		s.ID, s.State, s.Carrier, s.TrackingNumber, s.International,
		s.Customer.ID, s.Customer.Code, s.Customer.Name,
		s.CompanyName, s.CompanyCurrency,
		s.Profile.ProductCode, s.Profile.ExportType,
		s.Profile.ExportTypeDescription, s.Profile.TermsOfTrade,
		s.InvoiceDate, s.SaleDate,
		shipFrom, shipFromContact, delivery, deliveryContact,
	); err != nil {
		return fmt.Errorf("put shipment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shipment_packages WHERE shipment_id = $1;`, s.ID); err != nil {
		return fmt.Errorf("put shipment: clear packages: %w", err)
	}
	for i, pkg := range s.Packages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shipment_packages (id, shipment_id, weight_kg, tracking_number, position)
			 VALUES ($1, $2, $3, $4, $5);`,
			pkg.ID, s.ID, pkg.WeightKG, pkg.TrackingNumber, i); err != nil {
			return fmt.Errorf("put shipment: package %s: %w", pkg.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shipment_lines WHERE shipment_id = $1;`, s.ID); err != nil {
		return fmt.Errorf("put shipment: clear lines: %w", err)
	}
	for i, line := range s.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shipment_lines (shipment_id, position, product_name, quantity, unit_customs_value)
			 VALUES ($1, $2, $3, $4, $5);`,
			s.ID, i, line.ProductName, line.Quantity, line.UnitCustomsValue); err != nil {
			return fmt.Errorf("put shipment: line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put shipment: commit: %w", err)
	}
	return nil
}

// GetShipment loads a shipment with its packages and lines.
func (p *Postgres) GetShipment(ctx context.Context, id string) (*Shipment, error) {
	const query = `
	SELECT
		id, state, carrier, tracking_number, international,
		customer_id, customer_code, customer_name,
		company_name, company_currency,
		product_code, export_type, export_type_description, terms_of_trade,
		invoice_date, sale_date,
		ship_from, ship_from_contact, delivery, delivery_contact
	FROM shipments
	WHERE id = $1;
	`

	var s Shipment
	var invoiceDate, saleDate sql.NullTime
	var shipFrom, shipFromContact, delivery, deliveryContact []byte
	err := p.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.State, &s.Carrier, &s.TrackingNumber, &s.International,
		&s.Customer.ID, &s.Customer.Code, &s.Customer.Name,
		&s.CompanyName, &s.CompanyCurrency,
		&s.Profile.ProductCode, &s.Profile.ExportType,
		&s.Profile.ExportTypeDescription, &s.Profile.TermsOfTrade,
		&invoiceDate, &saleDate,
		&shipFrom, &shipFromContact, &delivery, &deliveryContact,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}

	if invoiceDate.Valid {
		s.InvoiceDate = &invoiceDate.Time
	}
	if saleDate.Valid {
		s.SaleDate = &saleDate.Time
	}

	if s.ShipFrom, err = unmarshalAddress(shipFrom); err != nil {
		return nil, fmt.Errorf("get shipment: ship_from: %w", err)
	}
	if s.Delivery, err = unmarshalAddress(delivery); err != nil {
		return nil, fmt.Errorf("get shipment: delivery: %w", err)
	}
	if s.ShipFromContact, err = unmarshalContact(shipFromContact); err != nil {
		return nil, fmt.Errorf("get shipment: ship_from_contact: %w", err)
	}
	if s.DeliveryContact, err = unmarshalContact(deliveryContact); err != nil {
		return nil, fmt.Errorf("get shipment: delivery_contact: %w", err)
	}

	if s.Packages, err = p.listPackages(ctx, id); err != nil {
		return nil, err
	}
	if s.Lines, err = p.listLines(ctx, id); err != nil {
		return nil, err
	}

	return &s, nil
}

func (p *Postgres) listPackages(ctx context.Context, shipmentID string) ([]Package, error) {
	const query = `
	SELECT id, weight_kg, tracking_number
	FROM shipment_packages
	WHERE shipment_id = $1
	ORDER BY position, id;
	`
	rows, err := p.DB.QueryContext(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var packages []Package
	for rows.Next() {
		var pkg Package
		if err := rows.Scan(&pkg.ID, &pkg.WeightKG, &pkg.TrackingNumber); err != nil {
			return nil, fmt.Errorf("list packages: scan row: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: row iteration: %w", err)
	}
	return packages, nil
}

func (p *Postgres) listLines(ctx context.Context, shipmentID string) ([]carrier.Line, error) {
	const query = `
	SELECT product_name, quantity, unit_customs_value
	FROM shipment_lines
	WHERE shipment_id = $1
	ORDER BY position;
	`
	rows, err := p.DB.QueryContext(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()

	var lines []carrier.Line
	for rows.Next() {
		var line carrier.Line
		if err := rows.Scan(&line.ProductName, &line.Quantity, &line.UnitCustomsValue); err != nil {
			return nil, fmt.Errorf("list lines: scan row: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lines: row iteration: %w", err)
	}
	return lines, nil
}

// SetShipmentTracking writes the shipment-level tracking number.
func (p *Postgres) SetShipmentTracking(ctx context.Context, id, trackingNumber string) error {
	res, err := p.DB.ExecContext(ctx,
		`UPDATE shipments SET tracking_number = $1 WHERE id = $2;`,
		trackingNumber, id)
	if err != nil {
		return fmt.Errorf("set shipment tracking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetPackageTracking writes one package-level tracking number.
func (p *Postgres) SetPackageTracking(ctx context.Context, shipmentID, packageID, trackingNumber string) error {
	res, err := p.DB.ExecContext(ctx,
		`UPDATE shipment_packages SET tracking_number = $1 WHERE shipment_id = $2 AND id = $3;`,
		trackingNumber, shipmentID, packageID)
	if err != nil {
		return fmt.Errorf("set package tracking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("package %s: %w", packageID, ErrNotFound)
	}
	return nil
}

// AddAttachment stores a label document against a shipment.
func (p *Postgres) AddAttachment(ctx context.Context, att *Attachment) error {
	createdAt := att.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO shipment_attachments (shipment_id, name, data, created_at)
		 VALUES ($1, $2, $3, $4);`,
		att.ShipmentID, att.Name, att.Data, createdAt)
	if err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	return nil
}

// GetAttachment returns a stored attachment.
func (p *Postgres) GetAttachment(ctx context.Context, shipmentID, name string) (*Attachment, error) {
	att := Attachment{ShipmentID: shipmentID, Name: name}
	err := p.DB.QueryRowContext(ctx,
		`SELECT data, created_at FROM shipment_attachments WHERE shipment_id = $1 AND name = $2;`,
		shipmentID, name).Scan(&att.Data, &att.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &att, nil
}

var (
	_ ShipmentStore   = (*Postgres)(nil)
	_ AttachmentStore = (*Postgres)(nil)
)
