package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con
// pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el registro actual de la clave; registro cero si no existe.
func (r *StockRepo) Get(warehouseID, productID string) (*entity.StockRecord, error) {
	query := `
		SELECT warehouse_id, product_id, quantity, average_cost, last_movement_at
		FROM stock_records WHERE warehouse_id = $1 AND product_id = $2`
	var s entity.StockRecord
	err := r.q.QueryRow(context.Background(), query, warehouseID, productID).Scan(
		&s.WarehouseID, &s.ProductID, &s.Quantity, &s.AverageCost, &s.LastMovementAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewZeroStockRecord(warehouseID, productID), nil
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return &s, nil
}

// GetForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE).
// Si la fila aún no existe no hay nada que bloquear: el primer movimiento de
// la clave queda cubierto por el lock por clave del applier.
func (r *StockRepo) GetForUpdate(warehouseID, productID string) (*entity.StockRecord, error) {
	query := `
		SELECT warehouse_id, product_id, quantity, average_cost, last_movement_at
		FROM stock_records WHERE warehouse_id = $1 AND product_id = $2
		FOR UPDATE`
	var s entity.StockRecord
	err := r.q.QueryRow(context.Background(), query, warehouseID, productID).Scan(
		&s.WarehouseID, &s.ProductID, &s.Quantity, &s.AverageCost, &s.LastMovementAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewZeroStockRecord(warehouseID, productID), nil
		}
		return nil, fmt.Errorf("get stock record for update: %w", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza el registro de la clave.
func (r *StockRepo) Upsert(record *entity.StockRecord) error {
	query := `
		INSERT INTO stock_records (warehouse_id, product_id, quantity, average_cost, last_movement_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity,
		              average_cost = EXCLUDED.average_cost,
		              last_movement_at = EXCLUDED.last_movement_at`
	_, err := r.q.Exec(context.Background(), query,
		record.WarehouseID, record.ProductID, record.Quantity, record.AverageCost, record.LastMovementAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock record: %w", err)
	}
	return nil
}

// ListByWarehouse lista las existencias de una bodega ordenadas por producto.
func (r *StockRepo) ListByWarehouse(warehouseID string, limit, offset int) ([]*entity.StockRecord, error) {
	query := `
		SELECT warehouse_id, product_id, quantity, average_cost, last_movement_at
		FROM stock_records WHERE warehouse_id = $1
		ORDER BY product_id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(context.Background(), query, warehouseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock by warehouse: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		var s entity.StockRecord
		if err := rows.Scan(&s.WarehouseID, &s.ProductID, &s.Quantity, &s.AverageCost, &s.LastMovementAt); err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
