package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	gosqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// driverName is go-sqlite3 with a ulower(text) function that lowercases by
// Unicode rules. The built-in LOWER only folds ASCII.
const driverName = "sqlite3_catalog"

func init() {
	sql.Register(driverName, &gosqlite3.SQLiteDriver{
		ConnectHook: func(conn *gosqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

const itemColumns = `i.id, i.name, i.description, i.sku, i.is_universal, i.price, i.discount,
	i.sale_price, i.cost_price, i.lead_time, i.created_at, i.updated_at`

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates a SQLite database at dbPath and applies pending migrations.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrateUp(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

func (s *SQLiteStorage) migrateUp() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion returns the applied migration version and whether it is dirty.
func (s *SQLiteStorage) SchemaVersion() (uint, bool, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// ListCategories returns every category.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, parent_id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Category
	for rows.Next() {
		var c models.Category
		var parent sql.NullInt64
		if err := rows.Scan(&c.ID, &parent, &c.Name); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := parent.Int64
			c.ParentID = &p
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ListSynonyms returns every stored synonym edge, one row per edge.
func (s *SQLiteStorage) ListSynonyms(ctx context.Context) ([]*models.SynonymEdge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, synonym, weight FROM synonyms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.SynonymEdge
	for rows.Next() {
		var e models.SynonymEdge
		if err := rows.Scan(&e.Term, &e.Synonym, &e.Weight); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// VocabularyNames returns up to limit distinct names from source. A limit <= 0 means no cap.
func (s *SQLiteStorage) VocabularyNames(ctx context.Context, source models.VocabularySource, limit int) ([]string, error) {
	var query string
	switch source {
	case models.VocabularyItems:
		query = `SELECT DISTINCT name FROM items ORDER BY name LIMIT ?`
	case models.VocabularyManufacturers:
		query = `SELECT DISTINCT name FROM manufacturers ORDER BY name LIMIT ?`
	case models.VocabularyModels:
		query = `SELECT name FROM (
			SELECT model_name AS name FROM vehicle_models
			UNION
			SELECT variant AS name FROM vehicle_models WHERE variant <> ''
		) ORDER BY name LIMIT ?`
	default:
		return nil, fmt.Errorf("unknown vocabulary source: %s", source)
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// FindCandidates returns every item passing filter, with the manufacturer and
// model texts it is scored on. Items are ordered by id.
func (s *SQLiteStorage) FindCandidates(ctx context.Context, filter *CandidateFilter) ([]*models.ItemDocument, error) {
	if filter == nil {
		filter = &CandidateFilter{}
	}
	where, args := candidateWhere(filter)

	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE `+where+` ORDER BY i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}
	var docs []*models.ItemDocument
	byID := make(map[int64]*models.ItemDocument)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		doc := &models.ItemDocument{Item: *item}
		docs = append(docs, doc)
		byID[item.ID] = doc
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(docs) == 0 {
		return docs, nil
	}

	textRows, err := s.db.QueryContext(ctx, `
		SELECT im.item_id, vm.model_name, vm.variant, COALESCE(m.name, '')
		FROM item_models im
		JOIN vehicle_models vm ON vm.id = im.model_id
		LEFT JOIN manufacturers m ON m.id = vm.manufacturer_id
		WHERE im.item_id IN (SELECT i.id FROM items i WHERE `+where+`)
		ORDER BY im.item_id, vm.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate text query failed: %w", err)
	}
	defer textRows.Close()
	for textRows.Next() {
		var itemID int64
		var modelName, variant, manufacturer string
		if err := textRows.Scan(&itemID, &modelName, &variant, &manufacturer); err != nil {
			return nil, err
		}
		doc, ok := byID[itemID]
		if !ok {
			continue
		}
		doc.ModelNames = appendUnique(doc.ModelNames, modelName)
		doc.Variants = appendUnique(doc.Variants, variant)
		doc.ManufacturerNames = appendUnique(doc.ManufacturerNames, manufacturer)
	}
	return docs, textRows.Err()
}

// candidateWhere builds the WHERE clause of the mandatory filter. Parameters
// grow with the number of query tokens and filter ids only. Both sides of
// every text match are lowercased by the same Unicode rules.
func candidateWhere(f *CandidateFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	for _, tok := range f.Tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		pattern := "%" + escapeLike(tok) + "%"
		clauses = append(clauses, `(ulower(i.name) LIKE ? ESCAPE '\'
			OR ulower(i.description) LIKE ? ESCAPE '\'
			OR EXISTS (
				SELECT 1 FROM item_models im
				JOIN vehicle_models vm ON vm.id = im.model_id
				LEFT JOIN manufacturers m ON m.id = vm.manufacturer_id
				WHERE im.item_id = i.id AND (
					ulower(COALESCE(m.name, '')) LIKE ? ESCAPE '\'
					OR ulower(vm.model_name) LIKE ? ESCAPE '\'
					OR ulower(vm.variant) LIKE ? ESCAPE '\')))`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	if f.ManufacturerID > 0 {
		clauses = append(clauses, `(i.is_universal = 1 OR EXISTS (
			SELECT 1 FROM item_models im
			JOIN vehicle_models vm ON vm.id = im.model_id
			WHERE im.item_id = i.id AND vm.manufacturer_id = ?))`)
		args = append(args, f.ManufacturerID)
	}

	if len(f.CategoryIDs) > 0 {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM item_categories ic
			WHERE ic.item_id = i.id AND ic.category_id IN (`+placeholders(len(f.CategoryIDs))+`))`)
		for _, id := range f.CategoryIDs {
			args = append(args, id)
		}
	}

	if len(f.ModelIDs) > 0 {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM item_models im
			WHERE im.item_id = i.id AND im.model_id IN (`+placeholders(len(f.ModelIDs))+`))`)
		for _, id := range f.ModelIDs {
			args = append(args, id)
		}
	}

	if len(clauses) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// ListItems returns the whole catalog ordered by id.
func (s *SQLiteStorage) ListItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items i ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SalesBySKU aggregates order lines of non-draft orders by SKU.
func (s *SQLiteStorage) SalesBySKU(ctx context.Context) (map[string]*models.SalesAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.sku, COALESCE(SUM(oi.quantity), 0), COUNT(DISTINCT oi.order_id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> 'draft'
		GROUP BY oi.sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*models.SalesAggregate)
	for rows.Next() {
		var agg models.SalesAggregate
		if err := rows.Scan(&agg.SKU, &agg.TotalSold, &agg.OrderCount); err != nil {
			return nil, err
		}
		out[agg.SKU] = &agg
	}
	return out, rows.Err()
}

// LoadRelations loads vehicle models, categories, and the primary image of the given items.
// Every requested id is present in the result, with empty relations when it has none.
func (s *SQLiteStorage) LoadRelations(ctx context.Context, itemIDs []int64) (map[int64]*models.ItemRelations, error) {
	out := make(map[int64]*models.ItemRelations, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
		out[id] = &models.ItemRelations{}
	}
	in := placeholders(len(itemIDs))

	modelRows, err := s.db.QueryContext(ctx, `
		SELECT im.item_id, vm.id, vm.manufacturer_id, COALESCE(m.name, ''), vm.model_name, vm.variant, vm.year_from, vm.year_to
		FROM item_models im
		JOIN vehicle_models vm ON vm.id = im.model_id
		LEFT JOIN manufacturers m ON m.id = vm.manufacturer_id
		WHERE im.item_id IN (`+in+`)
		ORDER BY im.item_id, vm.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load models failed: %w", err)
	}
	for modelRows.Next() {
		var itemID int64
		var vm models.VehicleModel
		var yearFrom, yearTo sql.NullInt64
		if err := modelRows.Scan(&itemID, &vm.ID, &vm.ManufacturerID, &vm.ManufacturerName, &vm.ModelName, &vm.Variant, &yearFrom, &yearTo); err != nil {
			modelRows.Close()
			return nil, err
		}
		vm.YearFrom = nullableInt(yearFrom)
		vm.YearTo = nullableInt(yearTo)
		out[itemID].Models = append(out[itemID].Models, &vm)
	}
	modelRows.Close()

	catRows, err := s.db.QueryContext(ctx, `
		SELECT ic.item_id, c.id, c.parent_id, c.name
		FROM item_categories ic
		JOIN categories c ON c.id = ic.category_id
		WHERE ic.item_id IN (`+in+`)
		ORDER BY ic.item_id, c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load categories failed: %w", err)
	}
	for catRows.Next() {
		var itemID int64
		var c models.Category
		var parent sql.NullInt64
		if err := catRows.Scan(&itemID, &c.ID, &parent, &c.Name); err != nil {
			catRows.Close()
			return nil, err
		}
		if parent.Valid {
			p := parent.Int64
			c.ParentID = &p
		}
		out[itemID].Categories = append(out[itemID].Categories, &c)
	}
	catRows.Close()

	imgRows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, url, is_primary, sort_order
		FROM item_images
		WHERE item_id IN (`+in+`)
		ORDER BY item_id, is_primary DESC, sort_order, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load images failed: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var img models.Image
		if err := imgRows.Scan(&img.ID, &img.ItemID, &img.URL, &img.IsPrimary, &img.SortOrder); err != nil {
			return nil, err
		}
		if rel := out[img.ItemID]; rel.PrimaryImage == nil {
			rel.PrimaryImage = &img
		}
	}
	return out, imgRows.Err()
}

// ReplaceSynonyms deletes every stored synonym and inserts edges in one transaction.
func (s *SQLiteStorage) ReplaceSynonyms(ctx context.Context, edges []*models.SynonymEdge) (int, error) {
	return s.writeSynonyms(ctx, edges, true)
}

// UpsertSynonyms inserts edges, updating the weight of edges that already exist.
func (s *SQLiteStorage) UpsertSynonyms(ctx context.Context, edges []*models.SynonymEdge) (int, error) {
	return s.writeSynonyms(ctx, edges, false)
}

func (s *SQLiteStorage) writeSynonyms(ctx context.Context, edges []*models.SynonymEdge, replace bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM synonyms`); err != nil {
			return 0, err
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO synonyms (term, synonym, weight) VALUES (?, ?, ?)
		ON CONFLICT(term, synonym) DO UPDATE SET weight = excluded.weight`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, e := range edges {
		term := strings.ToLower(strings.TrimSpace(e.Term))
		syn := strings.ToLower(strings.TrimSpace(e.Synonym))
		if term == "" || syn == "" || term == syn {
			continue
		}
		if e.Weight < 0 || e.Weight > 1 {
			return 0, fmt.Errorf("synonym %q -> %q: weight %v outside [0,1]", term, syn, e.Weight)
		}
		if _, err := stmt.ExecContext(ctx, term, syn, e.Weight); err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// RecordSearch stores one analytics record.
func (s *SQLiteStorage) RecordSearch(ctx context.Context, log *models.SearchLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (id, mode, query_params, results_count, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.ID, log.Mode, log.QueryParams, log.ResultsCount, log.DurationMs, log.CreatedAt,
	)
	return err
}

// Stats returns row counts of the catalog tables.
func (s *SQLiteStorage) Stats(ctx context.Context) (*models.CatalogStats, error) {
	var st models.CatalogStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM items),
		(SELECT COUNT(*) FROM categories),
		(SELECT COUNT(*) FROM manufacturers),
		(SELECT COUNT(*) FROM vehicle_models),
		(SELECT COUNT(*) FROM synonyms),
		(SELECT COUNT(*) FROM search_logs)`,
	).Scan(&st.Items, &st.Categories, &st.Manufacturers, &st.VehicleModels, &st.Synonyms, &st.SearchLogs)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var salePrice, costPrice sql.NullFloat64
	if err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.SKU, &item.IsUniversal,
		&item.Price, &item.Discount, &salePrice, &costPrice, &item.LeadTime,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if salePrice.Valid {
		v := salePrice.Float64
		item.SalePrice = &v
	}
	if costPrice.Valid {
		v := costPrice.Float64
		item.CostPrice = &v
	}
	return &item, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
