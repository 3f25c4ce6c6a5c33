package repository

import "github.com/tu-usuario/kardex-engine/internal/domain/entity"

// TransferOrderRepository define el puerto de persistencia para órdenes de
// traslado con sus líneas embebidas.
type TransferOrderRepository interface {
	Create(order *entity.TransferOrder) error
	GetByID(id string) (*entity.TransferOrder, error)
	// Save persiste estado y líneas completas de la orden.
	Save(order *entity.TransferOrder) error
	// DeleteDraft borra una orden solo si sigue en DRAFT.
	DeleteDraft(id string) error
}
