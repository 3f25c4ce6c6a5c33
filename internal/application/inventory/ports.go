package inventory

import (
	"context"

	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza que el update del StockRecord y el
// append del LedgerEntry sean una unidad atómica: ambos o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error
}
