package repository

import "github.com/tu-usuario/kardex-engine/internal/domain/entity"

// StockRepository define el puerto para consultar/actualizar el stock por
// clave (warehouse_id, product_id). Solo el Movement Applier escribe aquí;
// el resto del sistema lee.
type StockRepository interface {
	// Get devuelve el registro actual, o el registro cero si la clave no
	// tiene movimientos todavía.
	Get(warehouseID, productID string) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila para la transacción en curso
	// (SELECT FOR UPDATE en PostgreSQL). Devuelve el registro cero si no existe.
	GetForUpdate(warehouseID, productID string) (*entity.StockRecord, error)
	Upsert(record *entity.StockRecord) error
	// ListByWarehouse lista las existencias de una bodega (consultas de rango
	// para colaboradores de reporte/valorización).
	ListByWarehouse(warehouseID string, limit, offset int) ([]*entity.StockRecord, error)
}
