package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `id, warehouse_id, product_id, concept_id, signed_quantity, unit_cost,
		total_cost, quantity_before, quantity_after, reference_type, reference_id,
		actor_id, occurred_at, notes`

// LedgerRepo implementación del ledger sobre PostgreSQL (usable con pool o
// tx). Solo inserta y lee: la tabla no tiene UPDATE ni DELETE en ningún path.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append persiste un asiento del ledger.
func (r *LedgerRepo) Append(entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	notes := (*string)(nil)
	if entry.Notes != "" {
		notes = &entry.Notes
	}
	_, err := r.q.Exec(context.Background(), query,
		entry.ID, entry.WarehouseID, entry.ProductID, entry.ConceptID,
		entry.SignedQuantity, entry.UnitCost, entry.TotalCost,
		entry.QuantityBefore, entry.QuantityAfter,
		entry.ReferenceType, entry.ReferenceID, entry.ActorID,
		entry.OccurredAt, notes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: asiento duplicado %s", domain.ErrConflict, entry.ID)
		}
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// GetByID obtiene un asiento por ID; (nil, nil) si no existe.
func (r *LedgerRepo) GetByID(id string) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`
	e, err := scanEntry(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// ListByKey devuelve los asientos de una clave en orden cronológico ascendente
// (replay del kardex). El desempate por id mantiene el orden estable cuando
// dos asientos comparten timestamp.
func (r *LedgerRepo) ListByKey(warehouseID, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries WHERE warehouse_id = $1 AND product_id = $2
		ORDER BY occurred_at, id LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query, warehouseID, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger by key: %w", err)
	}
	return collectEntries(rows)
}

// ListByWarehouse lista asientos de una bodega en un rango de fechas.
func (r *LedgerRepo) ListByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE warehouse_id = $1`
	args := []any{warehouseID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY occurred_at, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger by warehouse: %w", err)
	}
	return collectEntries(rows)
}

// SumByKey suma las cantidades firmadas de la clave (invariante de
// conservación contra StockRecord.Quantity).
func (r *LedgerRepo) SumByKey(warehouseID, productID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(signed_quantity), 0)
		FROM ledger_entries WHERE warehouse_id = $1 AND product_id = $2`
	var sum decimal.Decimal
	if err := r.q.QueryRow(context.Background(), query, warehouseID, productID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger by key: %w", err)
	}
	return sum, nil
}

func scanEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var notes *string
	err := row.Scan(
		&e.ID, &e.WarehouseID, &e.ProductID, &e.ConceptID,
		&e.SignedQuantity, &e.UnitCost, &e.TotalCost,
		&e.QuantityBefore, &e.QuantityAfter,
		&e.ReferenceType, &e.ReferenceID, &e.ActorID,
		&e.OccurredAt, &notes,
	)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		e.Notes = *notes
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]*entity.LedgerEntry, error) {
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
