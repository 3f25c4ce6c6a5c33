package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord representa la existencia actual de un producto en una bodega.
// Es una proyección derivada del ledger de movimientos: su Quantity siempre
// debe igualar la suma de SignedQuantity de todos los LedgerEntry de la clave
// (warehouse_id, product_id). Se crea lazy en el primer movimiento y nunca se
// borra (un registro en cero conserva el historial de costo).
type StockRecord struct {
	WarehouseID    string
	ProductID      string
	Quantity       decimal.Decimal // puede ser negativa solo si la bodega lo permite
	AverageCost    decimal.Decimal // costo promedio ponderado, nunca negativo
	LastMovementAt time.Time
}

// NewZeroStockRecord devuelve el registro inicial (cantidad y costo en cero)
// para una clave que aún no tiene movimientos.
func NewZeroStockRecord(warehouseID, productID string) *StockRecord {
	return &StockRecord{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Quantity:    decimal.Zero,
		AverageCost: decimal.Zero,
	}
}
