package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	domaininv "github.com/tu-usuario/kardex-engine/internal/domain/inventory"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
	"github.com/tu-usuario/kardex-engine/pkg/keylock"
)

// rebuildPageSize tamaño de página al recorrer el ledger en replay.
const rebuildPageSize = 500

// ConservationReport resultado de verificar el invariante de conservación de
// una clave: la cantidad proyectada debe igualar la suma del ledger.
type ConservationReport struct {
	WarehouseID    string
	ProductID      string
	LedgerQuantity decimal.Decimal
	StoredQuantity decimal.Decimal
	Consistent     bool
}

// RebuildUseCase trata el ledger como fuente de verdad y el StockRecord como
// proyección derivada: permite verificarla y reconstruirla por replay.
// Comparte el KeyLock del applier para no cruzarse con movimientos en vuelo.
type RebuildUseCase struct {
	txRunner    TxRunner
	stockRepo   repository.StockRepository
	ledgerRepo  repository.LedgerRepository
	conceptRepo repository.ConceptRepository
	locks       *keylock.KeyLock
	cfg         Config
}

// NewRebuildUseCase construye el caso de uso de replay. locks debe ser la
// misma instancia que usa el MovementApplier.
func NewRebuildUseCase(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	conceptRepo repository.ConceptRepository,
	locks *keylock.KeyLock,
	cfg Config,
) *RebuildUseCase {
	if locks == nil {
		locks = keylock.New()
	}
	return &RebuildUseCase{
		txRunner:    txRunner,
		stockRepo:   stockRepo,
		ledgerRepo:  ledgerRepo,
		conceptRepo: conceptRepo,
		locks:       locks,
		cfg:         cfg,
	}
}

// CheckConservation compara la cantidad proyectada contra la suma del ledger.
func (uc *RebuildUseCase) CheckConservation(warehouseID, productID string) (*ConservationReport, error) {
	sum, err := uc.ledgerRepo.SumByKey(warehouseID, productID)
	if err != nil {
		return nil, err
	}
	stock, err := uc.stockRepo.Get(warehouseID, productID)
	if err != nil {
		return nil, err
	}
	return &ConservationReport{
		WarehouseID:    warehouseID,
		ProductID:      productID,
		LedgerQuantity: sum,
		StoredQuantity: stock.Quantity,
		Consistent:     sum.Equal(stock.Quantity),
	}, nil
}

// CheckChaining verifica el encadenamiento before/after de los asientos de la
// clave: el primer asiento parte de cero y cada QuantityAfter es el
// QuantityBefore del siguiente.
func (uc *RebuildUseCase) CheckChaining(warehouseID, productID string) error {
	prev := decimal.Zero
	offset := 0
	for {
		entries, err := uc.ledgerRepo.ListByKey(warehouseID, productID, rebuildPageSize, offset)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.QuantityBefore.Equal(prev) {
				return fmt.Errorf("%w: asiento %s parte de %s pero el anterior dejó %s",
					domain.ErrConflict, e.ID, e.QuantityBefore, prev)
			}
			if !e.QuantityAfter.Equal(e.QuantityBefore.Add(e.SignedQuantity)) {
				return fmt.Errorf("%w: asiento %s rompe quantity_after = quantity_before + signed_quantity",
					domain.ErrConflict, e.ID)
			}
			prev = e.QuantityAfter
		}
		if len(entries) < rebuildPageSize {
			return nil
		}
		offset += len(entries)
	}
}

// RebuildStock reconstruye la proyección de una clave por replay del ledger:
// recalcula cantidad y costo promedio asiento por asiento y reescribe el
// StockRecord. Toma el lock de la clave para no pisar movimientos en curso.
func (uc *RebuildUseCase) RebuildStock(ctx context.Context, warehouseID, productID string) (*entity.StockRecord, error) {
	lockCtx, cancel := context.WithTimeout(ctx, uc.cfg.LockTimeout)
	defer cancel()
	release, err := uc.locks.Acquire(lockCtx, stockKey(warehouseID, productID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyTimeout, err)
	}
	defer release()

	var rebuilt *entity.StockRecord
	err = uc.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		qty := decimal.Zero
		cost := decimal.Zero
		concepts := map[string]*entity.Concept{}

		rebuilt = entity.NewZeroStockRecord(warehouseID, productID)
		offset := 0
		for {
			entries, err := ledgerRepo.ListByKey(warehouseID, productID, rebuildPageSize, offset)
			if err != nil {
				return err
			}
			for _, e := range entries {
				concept, ok := concepts[e.ConceptID]
				if !ok {
					concept, err = uc.conceptRepo.GetByID(e.ConceptID)
					if err != nil {
						return err
					}
					if concept == nil {
						return fmt.Errorf("%w: %s", domain.ErrUnknownConcept, e.ConceptID)
					}
					concepts[e.ConceptID] = concept
				}
				if concept.IsInbound() && concept.AffectsCost {
					cost, err = domaininv.ComputeInbound(qty, cost, e.SignedQuantity, e.UnitCost)
					if err != nil {
						return err
					}
				}
				qty = qty.Add(e.SignedQuantity)
				rebuilt.LastMovementAt = e.OccurredAt
			}
			if len(entries) < rebuildPageSize {
				break
			}
			offset += len(entries)
		}

		rebuilt.Quantity = qty
		rebuilt.AverageCost = cost
		return stockRepo.Upsert(rebuilt)
	})
	if err != nil {
		return nil, err
	}
	return rebuilt, nil
}
