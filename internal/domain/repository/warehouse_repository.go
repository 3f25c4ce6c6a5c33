package repository

import "github.com/tu-usuario/kardex-engine/internal/domain/entity"

// WarehouseRepository define el puerto de lectura de bodegas. El motor lo usa
// para resolver la política allow_negative; el CRUD de bodegas es de otro
// módulo. Devuelve (nil, nil) si la bodega no existe.
type WarehouseRepository interface {
	GetByID(id string) (*entity.Warehouse, error)
}
