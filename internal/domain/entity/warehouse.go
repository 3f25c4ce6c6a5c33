package entity

import "time"

// Warehouse representa una bodega o sucursal donde se almacena inventario.
// AllowNegative es la política explícita por bodega: si es false, una salida
// que dejaría el stock bajo cero se rechaza con stock insuficiente.
type Warehouse struct {
	ID            string
	Name          string
	AllowNegative bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
