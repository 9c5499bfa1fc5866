package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medhq/hms-core/internal/model"
)

// Lot upserts match on (location, medication, batch, expiry); a
// matching row accumulates quantity instead of creating a duplicate.

func (r *inventoryRepository) UpsertBulkLot(ctx context.Context, tx *sqlx.Tx, lot *model.BulkStoreInventory) error {
	query := `
		INSERT INTO bulk_store_inventory (id, bulk_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, supplier_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (bulk_store_id, medication_id, batch_number, expiry_date)
		DO UPDATE SET quantity = bulk_store_inventory.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	lot.CreatedAt = time.Now()
	lot.UpdatedAt = time.Now()

	_, err := r.ext(tx).ExecContext(ctx, query,
		lot.ID, lot.BulkStoreID, lot.MedicationID, lot.BatchNumber,
		lot.Quantity, lot.ExpiryDate, lot.UnitCost, lot.SupplierID,
		lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bulk store lot: %w", err)
	}
	return nil
}

func (r *inventoryRepository) GetBulkLots(ctx context.Context, tx *sqlx.Tx, bulkStoreID, medicationID uuid.UUID) ([]*model.BulkStoreInventory, error) {
	query := `
		SELECT id, bulk_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, supplier_id, created_at, updated_at
		FROM bulk_store_inventory
		WHERE bulk_store_id = $1 AND medication_id = $2 AND quantity > 0
		ORDER BY expiry_date, created_at
	`
	var lots []*model.BulkStoreInventory
	if err := sqlx.SelectContext(ctx, r.ext(tx), &lots, query, bulkStoreID, medicationID); err != nil {
		return nil, fmt.Errorf("failed to get bulk store lots: %w", err)
	}
	return lots, nil
}

func (r *inventoryRepository) AdjustBulkLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error {
	return r.adjustLot(ctx, tx, "bulk_store_inventory", id, delta)
}

func (r *inventoryRepository) DeleteBulkLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return r.deleteLot(ctx, tx, "bulk_store_inventory", id)
}

func (r *inventoryRepository) UpsertActiveLot(ctx context.Context, tx *sqlx.Tx, lot *model.ActiveStoreInventory) error {
	query := `
		INSERT INTO active_store_inventory (id, active_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (active_store_id, medication_id, batch_number, expiry_date)
		DO UPDATE SET quantity = active_store_inventory.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	lot.CreatedAt = time.Now()
	lot.UpdatedAt = time.Now()

	_, err := r.ext(tx).ExecContext(ctx, query,
		lot.ID, lot.ActiveStoreID, lot.MedicationID, lot.BatchNumber,
		lot.Quantity, lot.ExpiryDate, lot.UnitCost, lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert active store lot: %w", err)
	}
	return nil
}

func (r *inventoryRepository) GetActiveLots(ctx context.Context, tx *sqlx.Tx, activeStoreID, medicationID uuid.UUID) ([]*model.ActiveStoreInventory, error) {
	query := `
		SELECT id, active_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, created_at, updated_at
		FROM active_store_inventory
		WHERE active_store_id = $1 AND medication_id = $2 AND quantity > 0
		ORDER BY expiry_date, created_at
	`
	var lots []*model.ActiveStoreInventory
	if err := sqlx.SelectContext(ctx, r.ext(tx), &lots, query, activeStoreID, medicationID); err != nil {
		return nil, fmt.Errorf("failed to get active store lots: %w", err)
	}
	return lots, nil
}

func (r *inventoryRepository) ListActiveLots(ctx context.Context, activeStoreID uuid.UUID) ([]*model.ActiveStoreInventory, error) {
	query := `
		SELECT id, active_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, created_at, updated_at
		FROM active_store_inventory
		WHERE active_store_id = $1
		ORDER BY medication_id, expiry_date
	`
	var lots []*model.ActiveStoreInventory
	if err := r.db.SelectContext(ctx, &lots, query, activeStoreID); err != nil {
		return nil, fmt.Errorf("failed to list active store lots: %w", err)
	}
	return lots, nil
}

func (r *inventoryRepository) AdjustActiveLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error {
	return r.adjustLot(ctx, tx, "active_store_inventory", id, delta)
}

func (r *inventoryRepository) DeleteActiveLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return r.deleteLot(ctx, tx, "active_store_inventory", id)
}

// FindDuplicateActiveLots groups active store rows that share
// (active_store_id, medication_id, batch_number, expiry_date,
// unit_cost). Used by the merge cleanup tool.
func (r *inventoryRepository) FindDuplicateActiveLots(ctx context.Context) (map[string][]*model.ActiveStoreInventory, error) {
	query := `
		SELECT id, active_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, created_at, updated_at
		FROM active_store_inventory a
		WHERE EXISTS (
			SELECT 1 FROM active_store_inventory b
			WHERE b.active_store_id = a.active_store_id
			  AND b.medication_id = a.medication_id
			  AND b.batch_number = a.batch_number
			  AND b.expiry_date = a.expiry_date
			  AND b.unit_cost = a.unit_cost
			  AND b.id <> a.id
		)
		ORDER BY created_at
	`
	var lots []*model.ActiveStoreInventory
	if err := r.db.SelectContext(ctx, &lots, query); err != nil {
		return nil, fmt.Errorf("failed to find duplicate active store lots: %w", err)
	}

	groups := make(map[string][]*model.ActiveStoreInventory)
	for _, lot := range lots {
		key := activeLotGroupKey(lot)
		groups[key] = append(groups[key], lot)
	}
	return groups, nil
}

func activeLotGroupKey(lot *model.ActiveStoreInventory) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", lot.ActiveStoreID, lot.MedicationID, lot.BatchNumber, lot.ExpiryDate.Format("2006-01-02"), lot.UnitCost.String())
}

func (r *inventoryRepository) UpsertDispensaryLot(ctx context.Context, tx *sqlx.Tx, lot *model.MedicationInventory) error {
	query := `
		INSERT INTO medication_inventory (id, dispensary_id, medication_id, batch_number, quantity, expiry_date, unit_cost, legacy_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dispensary_id, medication_id, batch_number)
		DO UPDATE SET quantity = medication_inventory.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	lot.CreatedAt = time.Now()
	lot.UpdatedAt = time.Now()

	_, err := r.ext(tx).ExecContext(ctx, query,
		lot.ID, lot.DispensaryID, lot.MedicationID, lot.BatchNumber,
		lot.Quantity, lot.ExpiryDate, lot.UnitCost, lot.LegacyStock,
		lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dispensary lot: %w", err)
	}
	return nil
}

func (r *inventoryRepository) GetDispensaryLots(ctx context.Context, tx *sqlx.Tx, dispensaryID, medicationID uuid.UUID) ([]*model.MedicationInventory, error) {
	query := `
		SELECT id, dispensary_id, medication_id, batch_number, quantity, expiry_date, unit_cost, legacy_stock, created_at, updated_at
		FROM medication_inventory
		WHERE dispensary_id = $1 AND medication_id = $2 AND quantity > 0
		ORDER BY legacy_stock, expiry_date NULLS LAST, created_at
	`
	var lots []*model.MedicationInventory
	if err := sqlx.SelectContext(ctx, r.ext(tx), &lots, query, dispensaryID, medicationID); err != nil {
		return nil, fmt.Errorf("failed to get dispensary lots: %w", err)
	}
	return lots, nil
}

func (r *inventoryRepository) AdjustDispensaryLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta int) error {
	return r.adjustLot(ctx, tx, "medication_inventory", id, delta)
}

func (r *inventoryRepository) DeleteDispensaryLot(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	return r.deleteLot(ctx, tx, "medication_inventory", id)
}

func (r *inventoryRepository) adjustLot(ctx context.Context, tx *sqlx.Tx, table string, id uuid.UUID, delta int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2 AND quantity + $1 >= 0
	`, table)
	result, err := r.ext(tx).ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust lot in %s: %w", table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("lot %s not found or would go negative", id)
	}
	return nil
}

func (r *inventoryRepository) deleteLot(ctx context.Context, tx *sqlx.Tx, table string, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	if _, err := r.ext(tx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete lot from %s: %w", table, err)
	}
	return nil
}

func tierTable(tier string) (table, locationColumn string) {
	switch tier {
	case model.TierBulkStore:
		return "bulk_store_inventory", "bulk_store_id"
	case model.TierActiveStore:
		return "active_store_inventory", "active_store_id"
	default:
		return "medication_inventory", "dispensary_id"
	}
}

func (r *inventoryRepository) GetStockLevel(ctx context.Context, tx *sqlx.Tx, tier string, locationID, medicationID uuid.UUID) (int, error) {
	table, col := tierTable(tier)
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(quantity), 0)
		FROM %s
		WHERE %s = $1 AND medication_id = $2
		  AND (expiry_date IS NULL OR expiry_date > NOW())
	`, table, col)
	var total int
	if err := sqlx.GetContext(ctx, r.ext(tx), &total, query, locationID, medicationID); err != nil {
		return 0, fmt.Errorf("failed to get stock level: %w", err)
	}
	return total, nil
}

func (r *inventoryRepository) ListStockLevels(ctx context.Context, tier string, locationID uuid.UUID) ([]*model.StockLevel, error) {
	table, col := tierTable(tier)
	query := fmt.Sprintf(`
		SELECT i.medication_id,
		       m.name AS medication_name,
		       '%s' AS tier,
		       i.%s AS location_id,
		       '' AS location_name,
		       COALESCE(SUM(i.quantity), 0) AS quantity,
		       MIN(i.expiry_date) AS earliest_expiry,
		       m.reorder_level
		FROM %s i
		JOIN medications m ON m.id = i.medication_id
		WHERE i.%s = $1
		  AND (i.expiry_date IS NULL OR i.expiry_date > NOW())
		GROUP BY i.medication_id, m.name, i.%s, m.reorder_level
		ORDER BY m.name
	`, tier, col, table, col, col)
	var levels []*model.StockLevel
	if err := r.db.SelectContext(ctx, &levels, query, locationID); err != nil {
		return nil, fmt.Errorf("failed to list stock levels: %w", err)
	}
	return levels, nil
}

func (r *inventoryRepository) ListLowStock(ctx context.Context, tier string, locationID uuid.UUID) ([]*model.StockLevel, error) {
	levels, err := r.ListStockLevels(ctx, tier, locationID)
	if err != nil {
		return nil, err
	}
	var low []*model.StockLevel
	for _, l := range levels {
		if l.Quantity <= l.ReorderLevel {
			low = append(low, l)
		}
	}
	return low, nil
}

func (r *inventoryRepository) ListExpiringLots(ctx context.Context, within time.Duration) ([]*model.ExpiringLot, error) {
	cutoff := time.Now().Add(within)
	query := `
		SELECT medication_id, medication_name, tier, location_id, batch_number, quantity, expiry_date,
		       GREATEST(0, EXTRACT(DAY FROM expiry_date - NOW()))::int AS days_left
		FROM (
			SELECT i.medication_id, m.name AS medication_name, 'bulk_store' AS tier,
			       i.bulk_store_id AS location_id, i.batch_number, i.quantity, i.expiry_date
			FROM bulk_store_inventory i JOIN medications m ON m.id = i.medication_id
			WHERE i.quantity > 0
			UNION ALL
			SELECT i.medication_id, m.name, 'active_store',
			       i.active_store_id, i.batch_number, i.quantity, i.expiry_date
			FROM active_store_inventory i JOIN medications m ON m.id = i.medication_id
			WHERE i.quantity > 0
			UNION ALL
			SELECT i.medication_id, m.name, 'dispensary',
			       i.dispensary_id, i.batch_number, i.quantity, i.expiry_date
			FROM medication_inventory i JOIN medications m ON m.id = i.medication_id
			WHERE i.quantity > 0 AND i.expiry_date IS NOT NULL
		) lots
		WHERE expiry_date <= $1
		ORDER BY expiry_date
	`
	var lots []*model.ExpiringLot
	if err := r.db.SelectContext(ctx, &lots, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list expiring lots: %w", err)
	}
	return lots, nil
}

func (r *inventoryRepository) LocationStockTotal(ctx context.Context, tier string, locationID uuid.UUID) (int, error) {
	table, col := tierTable(tier)
	query := fmt.Sprintf(`SELECT COALESCE(SUM(quantity), 0) FROM %s WHERE %s = $1`, table, col)
	var total int
	if err := r.db.GetContext(ctx, &total, query, locationID); err != nil {
		return 0, fmt.Errorf("failed to get location stock total: %w", err)
	}
	return total, nil
}

func (r *inventoryRepository) CreatePurchaseReceipt(ctx context.Context, tx *sqlx.Tx, receipt *model.PurchaseReceipt) error {
	query := `
		INSERT INTO purchase_receipts (id, bulk_store_id, medication_id, batch_number, quantity, expiry_date, unit_cost, supplier_id, received_by, received_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	receipt.ID = uuid.New()
	receipt.CreatedAt = time.Now()
	receipt.UpdatedAt = time.Now()
	if receipt.ReceivedAt.IsZero() {
		receipt.ReceivedAt = receipt.CreatedAt
	}

	_, err := r.ext(tx).ExecContext(ctx, query,
		receipt.ID, receipt.BulkStoreID, receipt.MedicationID, receipt.BatchNumber,
		receipt.Quantity, receipt.ExpiryDate, receipt.UnitCost, receipt.SupplierID,
		receipt.ReceivedBy, receipt.ReceivedAt, receipt.CreatedAt, receipt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase receipt: %w", err)
	}
	return nil
}

func (r *inventoryRepository) SearchStock(ctx context.Context, term string) ([]*model.StockSearchRow, error) {
	query := `
		SELECT m.id AS medication_id, m.name AS medication_name, m.generic_name,
		       'active_store' AS source, i.active_store_id AS location_id,
		       SUM(i.quantity)::int AS quantity
		FROM active_store_inventory i
		JOIN medications m ON m.id = i.medication_id
		WHERE i.quantity > 0
		  AND (m.name ILIKE $1 OR m.generic_name ILIKE $1 OR m.category ILIKE $1)
		GROUP BY m.id, m.name, m.generic_name, i.active_store_id
		UNION ALL
		SELECT m.id, m.name, m.generic_name,
		       CASE WHEN i.legacy_stock THEN 'legacy' ELSE 'dispensary' END,
		       i.dispensary_id, SUM(i.quantity)::int
		FROM medication_inventory i
		JOIN medications m ON m.id = i.medication_id
		WHERE i.quantity > 0
		  AND (m.name ILIKE $1 OR m.generic_name ILIKE $1 OR m.category ILIKE $1)
		GROUP BY m.id, m.name, m.generic_name, i.legacy_stock, i.dispensary_id
		ORDER BY medication_name, source
	`
	var rows []*model.StockSearchRow
	if err := r.db.SelectContext(ctx, &rows, query, "%"+term+"%"); err != nil {
		return nil, fmt.Errorf("failed to search stock: %w", err)
	}
	return rows, nil
}
