package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

var _ repository.ConceptRepository = (*ConceptRepo)(nil)

// ConceptRepo lectura del catálogo de conceptos sobre PostgreSQL. La tabla la
// mantiene el módulo de catálogo; aquí no hay escrituras.
type ConceptRepo struct {
	q Querier
}

// NewConceptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConceptRepository(q Querier) *ConceptRepo {
	return &ConceptRepo{q: q}
}

// GetByID resuelve un concepto por su identificador estable; (nil, nil) si no
// existe.
func (r *ConceptRepo) GetByID(id string) (*entity.Concept, error) {
	query := `SELECT id, code, direction, affects_cost FROM concepts WHERE id = $1`
	var c entity.Concept
	err := r.q.QueryRow(context.Background(), query, id).Scan(&c.ID, &c.Code, &c.Direction, &c.AffectsCost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return &c, nil
}

// GetByCode resuelve un concepto por código exacto (nunca por substring).
func (r *ConceptRepo) GetByCode(code string) (*entity.Concept, error) {
	query := `SELECT id, code, direction, affects_cost FROM concepts WHERE code = $1`
	var c entity.Concept
	err := r.q.QueryRow(context.Background(), query, code).Scan(&c.ID, &c.Code, &c.Direction, &c.AffectsCost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get concept by code: %w", err)
	}
	return &c, nil
}

// List devuelve el catálogo completo ordenado por código.
func (r *ConceptRepo) List() ([]*entity.Concept, error) {
	query := `SELECT id, code, direction, affects_cost FROM concepts ORDER BY code`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()
	var list []*entity.Concept
	for rows.Next() {
		var c entity.Concept
		if err := rows.Scan(&c.ID, &c.Code, &c.Direction, &c.AffectsCost); err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
