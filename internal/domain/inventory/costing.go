package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/domain"
)

// costPrecision es la precisión de la unidad monetaria mínima (centavos).
const costPrecision = 2

// ComputeInbound implementa el costo promedio ponderado (servicio de dominio,
// puro, sin I/O). Solo las entradas recalculan costo; las salidas jamás lo
// cambian.
//
//	NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
//
// redondeado a 2 decimales half-up. Caso degenerado: si el stock resultante es
// <= 0 (el stock previo era cero o negativo), el nuevo costo es el costo de la
// entrada tal cual.
func ComputeInbound(currentQty, currentCost, incomingQty, incomingCost decimal.Decimal) (decimal.Decimal, error) {
	if !incomingQty.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	newQty := currentQty.Add(incomingQty)
	if newQty.LessThanOrEqual(decimal.Zero) {
		return incomingCost.Round(costPrecision), nil
	}
	num := currentQty.Mul(currentCost).Add(incomingQty.Mul(incomingCost))
	// decimal.Round redondea half away from zero; con costos no negativos
	// equivale a half-up.
	return num.Div(newQty).Round(costPrecision), nil
}

// ValidateOutbound verifica que una salida de requestedQty sea válida contra
// el stock actual. Las bodegas con allowNegative pueden quedar bajo cero: es
// política explícita por bodega, no un descuido.
func ValidateOutbound(currentQty, requestedQty decimal.Decimal, allowNegative bool) error {
	if !requestedQty.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidQuantity
	}
	if !allowNegative && requestedQty.GreaterThan(currentQty) {
		return domain.ErrInsufficientStock
	}
	return nil
}
