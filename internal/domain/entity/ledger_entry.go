package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento de referencia que originan un movimiento.
const (
	ReferenceTypeSale       = "SALE"
	ReferenceTypePurchase   = "PURCHASE"
	ReferenceTypeAdjustment = "ADJUSTMENT"
	ReferenceTypeTransfer   = "TRANSFER"
)

// LedgerEntry es un asiento inmutable del kardex: un evento que afectó stock,
// con snapshot de cantidad antes/después. Nunca se edita ni se borra; una
// corrección se registra como asiento compensatorio.
//
// Invariantes: QuantityAfter = QuantityBefore + SignedQuantity, y el
// QuantityAfter del asiento n es el QuantityBefore del asiento n+1 de la misma
// clave (sin huecos).
type LedgerEntry struct {
	ID             string
	WarehouseID    string
	ProductID      string
	ConceptID      string
	SignedQuantity decimal.Decimal // positiva entrada, negativa salida
	UnitCost       decimal.Decimal
	TotalCost      decimal.Decimal // |SignedQuantity| * UnitCost
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal
	ReferenceType  string // SALE, PURCHASE, ADJUSTMENT, TRANSFER
	ReferenceID    string // id del documento de negocio; dato opaco, no se valida
	ActorID        string
	OccurredAt     time.Time
	Notes          string
}
