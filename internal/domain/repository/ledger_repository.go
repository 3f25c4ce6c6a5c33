package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
)

// LedgerRepository define el puerto del ledger de movimientos. El ledger es
// append-only: no existen Update ni Delete; una corrección es un asiento
// compensatorio nuevo.
type LedgerRepository interface {
	Append(entry *entity.LedgerEntry) error
	GetByID(id string) (*entity.LedgerEntry, error)
	// ListByKey devuelve los asientos de una clave en orden cronológico
	// ascendente (replay del kardex).
	ListByKey(warehouseID, productID string, limit, offset int) ([]*entity.LedgerEntry, error)
	ListByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, error)
	// SumByKey devuelve la suma de SignedQuantity de la clave; debe igualar
	// StockRecord.Quantity (invariante de conservación).
	SumByKey(warehouseID, productID string) (decimal.Decimal, error)
}
