package memory

import (
	"context"
	"sync"

	"github.com/tu-usuario/kardex-engine/internal/application/inventory"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner emula la transacción de BD sobre el Store: toma un snapshot del
// estado mutable, ejecuta fn, y si falla restaura el snapshot. Las
// transacciones se serializan entre sí (equivale a SERIALIZABLE), lo que
// mantiene el todo-o-nada de stock + ledger y hace seguro el rollback.
type TxRunner struct {
	store *Store
	txMu  sync.Mutex
}

// NewTxRunner construye el runner sobre el Store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repos del Store; restaura el snapshot si fn devuelve
// error o el contexto ya venía cancelado.
func (r *TxRunner) Run(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	s := r.store
	s.mu.Lock()
	stockSnap := make(map[string]*entity.StockRecord, len(s.stock))
	for k, v := range s.stock {
		stockSnap[k] = v // los registros se reemplazan completos en Upsert, no se mutan
	}
	ledgerLen := len(s.ledger)
	s.mu.Unlock()

	err := fn(NewStockRepository(s), NewLedgerRepository(s))
	if err != nil {
		s.mu.Lock()
		s.stock = stockSnap
		for _, e := range s.ledger[ledgerLen:] {
			delete(s.ledgerByID, e.ID)
		}
		s.ledger = s.ledger[:ledgerLen]
		s.mu.Unlock()
		return err
	}
	return nil
}
