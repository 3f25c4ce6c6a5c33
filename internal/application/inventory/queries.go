package inventory

import (
	"time"

	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

// StockQueryUseCase expone las lecturas del motor: existencias actuales y
// replay cronológico del ledger. No muta nada.
type StockQueryUseCase struct {
	stockRepo  repository.StockRepository
	ledgerRepo repository.LedgerRepository
}

// NewStockQueryUseCase construye el caso de uso de consulta.
func NewStockQueryUseCase(stockRepo repository.StockRepository, ledgerRepo repository.LedgerRepository) *StockQueryUseCase {
	return &StockQueryUseCase{stockRepo: stockRepo, ledgerRepo: ledgerRepo}
}

// GetStock devuelve la existencia actual de la clave; si no hay movimientos
// todavía, el registro cero.
func (uc *StockQueryUseCase) GetStock(warehouseID, productID string) (*entity.StockRecord, error) {
	return uc.stockRepo.Get(warehouseID, productID)
}

// ListStockByWarehouse lista todas las existencias de una bodega (consultas de
// valorización y "disponible para vender" de colaboradores externos).
func (uc *StockQueryUseCase) ListStockByWarehouse(warehouseID string, limit, offset int) ([]*entity.StockRecord, error) {
	return uc.stockRepo.ListByWarehouse(warehouseID, limit, offset)
}

// ListMovements devuelve el historial cronológico de una clave.
func (uc *StockQueryUseCase) ListMovements(warehouseID, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	return uc.ledgerRepo.ListByKey(warehouseID, productID, limit, offset)
}

// ListMovementsByWarehouse devuelve los asientos de una bodega en un rango de
// fechas.
func (uc *StockQueryUseCase) ListMovementsByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, error) {
	return uc.ledgerRepo.ListByWarehouse(warehouseID, from, to, limit, offset)
}
