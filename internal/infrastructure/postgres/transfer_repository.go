package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

var _ repository.TransferOrderRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferOrderRepository sobre PostgreSQL:
// una fila en transfer_orders más sus líneas en transfer_lines.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create persiste la orden y sus líneas.
func (r *TransferRepo) Create(order *entity.TransferOrder) error {
	ctx := context.Background()
	query := `
		INSERT INTO transfer_orders (id, source_warehouse_id, dest_warehouse_id, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		order.ID, order.SourceWarehouseID, order.DestWarehouseID,
		order.Status, order.CreatedBy, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: traslado duplicado %s", domain.ErrConflict, order.ID)
		}
		return fmt.Errorf("create transfer order: %w", err)
	}
	return r.insertLines(ctx, order)
}

// GetByID obtiene la orden con sus líneas; (nil, nil) si no existe.
func (r *TransferRepo) GetByID(id string) (*entity.TransferOrder, error) {
	ctx := context.Background()
	query := `
		SELECT id, source_warehouse_id, dest_warehouse_id, status, created_by, created_at, updated_at
		FROM transfer_orders WHERE id = $1`
	var o entity.TransferOrder
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.SourceWarehouseID, &o.DestWarehouseID,
		&o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer order: %w", err)
	}

	linesQuery := `
		SELECT product_id, quantity_requested, quantity_sent, quantity_received, unit_cost_at_send
		FROM transfer_lines WHERE transfer_id = $1 ORDER BY product_id`
	rows, err := r.q.Query(ctx, linesQuery, id)
	if err != nil {
		return nil, fmt.Errorf("list transfer lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.TransferLine
		if err := rows.Scan(&l.ProductID, &l.QuantityRequested, &l.QuantitySent, &l.QuantityReceived, &l.UnitCostAtSend); err != nil {
			return nil, fmt.Errorf("scan transfer line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Save reescribe estado y líneas completas de la orden (las ediciones de
// borrador reemplazan las líneas en bloque).
func (r *TransferRepo) Save(order *entity.TransferOrder) error {
	ctx := context.Background()
	query := `
		UPDATE transfer_orders
		SET status = $2, updated_at = $3
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, order.ID, order.Status, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save transfer order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM transfer_lines WHERE transfer_id = $1`, order.ID); err != nil {
		return fmt.Errorf("replace transfer lines: %w", err)
	}
	return r.insertLines(ctx, order)
}

// DeleteDraft borra la orden solo si sigue en DRAFT.
func (r *TransferRepo) DeleteDraft(id string) error {
	ctx := context.Background()
	var status string
	err := r.q.QueryRow(ctx, `SELECT status FROM transfer_orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get transfer status: %w", err)
	}
	if status != entity.TransferStatusDraft {
		return domain.ErrConflict
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM transfer_lines WHERE transfer_id = $1`, id); err != nil {
		return fmt.Errorf("delete transfer lines: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM transfer_orders WHERE id = $1 AND status = $2`, id, entity.TransferStatusDraft); err != nil {
		return fmt.Errorf("delete transfer order: %w", err)
	}
	return nil
}

func (r *TransferRepo) insertLines(ctx context.Context, order *entity.TransferOrder) error {
	query := `
		INSERT INTO transfer_lines (transfer_id, product_id, quantity_requested, quantity_sent, quantity_received, unit_cost_at_send)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range order.Lines {
		l := &order.Lines[i]
		if _, err := r.q.Exec(ctx, query,
			order.ID, l.ProductID, l.QuantityRequested, l.QuantitySent, l.QuantityReceived, l.UnitCostAtSend,
		); err != nil {
			return fmt.Errorf("insert transfer line: %w", err)
		}
	}
	return nil
}
