package repository

import "github.com/tu-usuario/kardex-engine/internal/domain/entity"

// ConceptRepository define el puerto de lectura del catálogo de conceptos.
// El catálogo lo mantiene un colaborador externo; este motor nunca escribe.
// GetByID/GetByCode devuelven (nil, nil) si el concepto no existe.
type ConceptRepository interface {
	GetByID(id string) (*entity.Concept, error)
	GetByCode(code string) (*entity.Concept, error)
	List() ([]*entity.Concept, error)
}
