package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// ItemLinks are the associations written together with an item.
type ItemLinks struct {
	CategoryIDs []int64
	ModelIDs    []int64
	Images      []*models.Image
}

// OrderLine is one line of a historical order.
type OrderLine struct {
	SKU       string
	Quantity  int
	UnitPrice float64
}

// CreateManufacturer inserts m. A zero ID lets SQLite assign one; the assigned ID is set on m.
func (s *SQLiteStorage) CreateManufacturer(ctx context.Context, m *models.Manufacturer) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO manufacturers (id, name) VALUES (?, ?)`, nullableID(m.ID), m.Name)
	if err != nil {
		return fmt.Errorf("insert manufacturer %q: %w", m.Name, err)
	}
	return assignID(res, &m.ID)
}

// CreateVehicleModel inserts vm.
func (s *SQLiteStorage) CreateVehicleModel(ctx context.Context, vm *models.VehicleModel) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicle_models (id, manufacturer_id, model_name, variant, year_from, year_to) VALUES (?, ?, ?, ?, ?, ?)`,
		nullableID(vm.ID), vm.ManufacturerID, vm.ModelName, vm.Variant, vm.YearFrom, vm.YearTo,
	)
	if err != nil {
		return fmt.Errorf("insert vehicle model %q: %w", vm.ModelName, err)
	}
	return assignID(res, &vm.ID)
}

// CreateCategory inserts c.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, c *models.Category) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, parent_id, name) VALUES (?, ?, ?)`,
		nullableID(c.ID), c.ParentID, c.Name)
	if err != nil {
		return fmt.Errorf("insert category %q: %w", c.Name, err)
	}
	return assignID(res, &c.ID)
}

// CreateItem inserts item and its links in one transaction.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *models.Item, links *ItemLinks) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO items (id, name, description, sku, is_universal, price, discount, sale_price, cost_price, lead_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(item.ID), item.Name, item.Description, item.SKU, item.IsUniversal, item.Price, item.Discount,
		item.SalePrice, item.CostPrice, item.LeadTime, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item %q: %w", item.SKU, err)
	}
	if err := assignID(res, &item.ID); err != nil {
		return err
	}

	if links != nil {
		for _, cid := range links.CategoryIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO item_categories (item_id, category_id) VALUES (?, ?)`, item.ID, cid); err != nil {
				return fmt.Errorf("link item %d to category %d: %w", item.ID, cid, err)
			}
		}
		for _, mid := range links.ModelIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO item_models (item_id, model_id) VALUES (?, ?)`, item.ID, mid); err != nil {
				return fmt.Errorf("link item %d to model %d: %w", item.ID, mid, err)
			}
		}
		for _, img := range links.Images {
			res, err := tx.ExecContext(ctx, `INSERT INTO item_images (item_id, url, is_primary, sort_order) VALUES (?, ?, ?, ?)`,
				item.ID, img.URL, img.IsPrimary, img.SortOrder)
			if err != nil {
				return fmt.Errorf("insert image for item %d: %w", item.ID, err)
			}
			img.ItemID = item.ID
			if err := assignID(res, &img.ID); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// CreateOrder inserts an order with its lines and returns its id.
func (s *SQLiteStorage) CreateOrder(ctx context.Context, status string, lines []OrderLine) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO orders (status, created_at) VALUES (?, ?)`, status, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, sku, quantity, unit_price) VALUES (?, ?, ?, ?)`,
			orderID, l.SKU, l.Quantity, l.UnitPrice,
		); err != nil {
			return 0, fmt.Errorf("insert order line %q: %w", l.SKU, err)
		}
	}
	return orderID, tx.Commit()
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func assignID(res sql.Result, id *int64) error {
	if *id != 0 {
		return nil
	}
	n, err := res.LastInsertId()
	if err != nil {
		return err
	}
	*id = n
	return nil
}
