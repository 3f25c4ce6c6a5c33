package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de traslado entre bodegas.
// DRAFT → IN_TRANSIT → {PARTIALLY_RECEIVED → RECEIVED | RECEIVED};
// DRAFT → CANCELLED. RECEIVED y CANCELLED son terminales.
const (
	TransferStatusDraft             = "DRAFT"
	TransferStatusInTransit         = "IN_TRANSIT"
	TransferStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	TransferStatusReceived          = "RECEIVED"
	TransferStatusCancelled         = "CANCELLED"
)

// TransferLine es una línea de la orden. UnitCostAtSend se congela con el
// costo promedio del origen en el momento del primer envío y no se recalcula.
type TransferLine struct {
	ProductID         string
	QuantityRequested decimal.Decimal
	QuantitySent      decimal.Decimal
	QuantityReceived  decimal.Decimal
	UnitCostAtSend    decimal.Decimal
}

// TransferOrder es una orden de traslado en dos fases (enviar / recibir).
// Entre ambas fases la mercancía está "en tránsito": salió del ledger del
// origen pero aún no entra al del destino. Ese estado intermedio es válido y
// durable, no una falla a recuperar.
type TransferOrder struct {
	ID                string
	SourceWarehouseID string
	DestWarehouseID   string
	Status            string
	Lines             []TransferLine
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Line devuelve el índice de la línea del producto, o -1 si no existe.
func (o *TransferOrder) Line(productID string) int {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// FullyReceived indica si toda línea enviada fue recibida por completo.
func (o *TransferOrder) FullyReceived() bool {
	for i := range o.Lines {
		if !o.Lines[i].QuantityReceived.Equal(o.Lines[i].QuantitySent) {
			return false
		}
	}
	return true
}
