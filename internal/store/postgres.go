package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avasquez/deedscan/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	account_number    TEXT PRIMARY KEY,
	site_address      TEXT NOT NULL DEFAULT '',
	land_value        BIGINT NOT NULL DEFAULT 0,
	improvement_value BIGINT NOT NULL DEFAULT 0,
	total_market_value BIGINT NOT NULL DEFAULT 0,
	subdivision       TEXT NOT NULL DEFAULT '',
	block             TEXT NOT NULL DEFAULT '',
	city_block        TEXT NOT NULL DEFAULT '',
	lot1              TEXT NOT NULL DEFAULT '',
	lot2              TEXT NOT NULL DEFAULT '',
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS owners (
	id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	raw_name        TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL,
	mailing_address TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ownership_intervals (
	account_number TEXT NOT NULL REFERENCES properties(account_number),
	owner_id       BIGINT NOT NULL REFERENCES owners(id),
	start_year     INT NOT NULL,
	end_year       INT NOT NULL,
	deed_reference TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ownership_intervals_account_idx ON ownership_intervals(account_number);

CREATE TABLE IF NOT EXISTS exemption_intervals (
	account_number TEXT NOT NULL REFERENCES properties(account_number),
	code           TEXT NOT NULL,
	start_year     INT NOT NULL,
	end_year       INT NOT NULL
);
CREATE INDEX IF NOT EXISTS exemption_intervals_account_idx ON exemption_intervals(account_number);

CREATE TABLE IF NOT EXISTS value_snapshots (
	account_number     TEXT NOT NULL REFERENCES properties(account_number),
	year               INT NOT NULL,
	total_market_value BIGINT NOT NULL,
	UNIQUE (account_number, year)
);

CREATE TABLE IF NOT EXISTS document_records (
	account_number    TEXT NOT NULL REFERENCES properties(account_number),
	instrument_number TEXT NOT NULL,
	document_type     TEXT NOT NULL DEFAULT '',
	grantor           TEXT NOT NULL DEFAULT '',
	grantee           TEXT NOT NULL DEFAULT '',
	filing_date       TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	source_url        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS document_records_account_idx ON document_records(account_number);
`

// Postgres persists records in PostgreSQL via a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) UpsertProperty(ctx context.Context, p *model.Property) error {
	if p == nil || p.AccountNumber == "" {
		return fmt.Errorf("property with account number is required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO properties (
			account_number, site_address, land_value, improvement_value,
			total_market_value, subdivision, block, city_block, lot1, lot2, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())
		ON CONFLICT (account_number) DO UPDATE SET
			site_address = EXCLUDED.site_address,
			land_value = EXCLUDED.land_value,
			improvement_value = EXCLUDED.improvement_value,
			total_market_value = EXCLUDED.total_market_value,
			subdivision = EXCLUDED.subdivision,
			block = EXCLUDED.block,
			city_block = EXCLUDED.city_block,
			lot1 = EXCLUDED.lot1,
			lot2 = EXCLUDED.lot2,
			updated_at = now()`,
		p.AccountNumber, p.SiteAddress, p.LandValue, p.ImprovementValue,
		p.TotalMarketValue, p.Legal.Subdivision, p.Legal.Block,
		p.Legal.CityBlock, p.Legal.Lot1, p.Legal.Lot2,
	)
	if err != nil {
		return fmt.Errorf("upsert property %s: %w", p.AccountNumber, err)
	}
	return nil
}

func (s *Postgres) UpsertOwners(ctx context.Context, owners []model.Owner) (map[string]int64, error) {
	ids := make(map[string]int64, len(owners))
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin owners tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, o := range owners {
		var id int64
		// The no-op update makes RETURNING work on conflict while keeping
		// the stored row's first-seen metadata intact.
		err := tx.QueryRow(ctx, `
			INSERT INTO owners (raw_name, name, mailing_address)
			VALUES ($1, $2, $3)
			ON CONFLICT (raw_name) DO UPDATE SET raw_name = EXCLUDED.raw_name
			RETURNING id`,
			o.RawName, o.Name, o.MailingAddress,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert owner %q: %w", o.RawName, err)
		}
		ids[o.RawName] = id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit owners tx: %w", err)
	}
	return ids, nil
}

func (s *Postgres) ReplaceOwnershipIntervals(ctx context.Context, accountNumber string, intervals []model.OwnershipInterval) error {
	batch := &pgx.Batch{}
	for _, iv := range intervals {
		batch.Queue(`
			INSERT INTO ownership_intervals (account_number, owner_id, start_year, end_year, deed_reference)
			VALUES ($1,$2,$3,$4,$5)`,
			accountNumber, iv.OwnerID, iv.StartYear, iv.EndYear, iv.DeedReference)
	}
	return s.replace(ctx, "ownership_intervals", accountNumber, batch)
}

func (s *Postgres) ReplaceExemptionIntervals(ctx context.Context, accountNumber string, intervals []model.ExemptionInterval) error {
	batch := &pgx.Batch{}
	for _, iv := range intervals {
		batch.Queue(`
			INSERT INTO exemption_intervals (account_number, code, start_year, end_year)
			VALUES ($1,$2,$3,$4)`,
			accountNumber, iv.Code, iv.StartYear, iv.EndYear)
	}
	return s.replace(ctx, "exemption_intervals", accountNumber, batch)
}

func (s *Postgres) ReplaceValueSnapshots(ctx context.Context, accountNumber string, snapshots []model.ValueSnapshot) error {
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO value_snapshots (account_number, year, total_market_value)
			VALUES ($1,$2,$3)`,
			accountNumber, snap.Year, snap.TotalMarketValue)
	}
	return s.replace(ctx, "value_snapshots", accountNumber, batch)
}

func (s *Postgres) ReplaceDocumentRecords(ctx context.Context, accountNumber string, docs []model.DocumentRecord) error {
	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(`
			INSERT INTO document_records (account_number, instrument_number, document_type,
				grantor, grantee, filing_date, summary, source_url)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			accountNumber, d.InstrumentNumber, d.DocumentType,
			d.Grantor, d.Grantee, d.FilingDate, d.Summary, d.SourceURL)
	}
	return s.replace(ctx, "document_records", accountNumber, batch)
}

// replace runs the delete-then-insert swap for one table inside a single
// transaction, so readers never observe a half-replaced property.
func (s *Postgres) replace(ctx context.Context, table, accountNumber string, inserts *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE account_number = $1", table), accountNumber); err != nil {
		return fmt.Errorf("clear %s for %s: %w", table, accountNumber, err)
	}

	if inserts.Len() > 0 {
		results := tx.SendBatch(ctx, inserts)
		for i := 0; i < inserts.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert %s row for %s: %w", table, accountNumber, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close %s batch: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s tx: %w", table, err)
	}
	return nil
}
