package entity

// Dirección de un concepto de movimiento.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Concept clasifica un movimiento de inventario (compra, venta, ajuste,
// traspaso). El catálogo es propiedad de un colaborador externo; el motor solo
// lo lee. La resolución es siempre por ID estable o código exacto, nunca por
// substring del nombre.
type Concept struct {
	ID          string
	Code        string // código estable, ej. "compra", "traspaso-salida"
	Direction   string // INBOUND u OUTBOUND
	AffectsCost bool   // solo entradas con AffectsCost recalculan el promedio
}

// IsInbound indica si el concepto suma stock.
func (c *Concept) IsInbound() bool { return c.Direction == DirectionInbound }

// IsOutbound indica si el concepto resta stock.
func (c *Concept) IsOutbound() bool { return c.Direction == DirectionOutbound }
