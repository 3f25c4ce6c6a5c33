package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/kardex-engine/internal/application/inventory"
	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/infrastructure/memory"
	"github.com/tu-usuario/kardex-engine/pkg/keylock"
)

const (
	whStrict   = "bodega-principal" // allow_negative = false
	whNegative = "bodega-merma"     // allow_negative = true

	conceptPurchase = "c-compra"
	conceptSale     = "c-venta"
	conceptAdjustIn = "c-ajuste-entrada" // INBOUND sin recalcular costo
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type fixture struct {
	store   *memory.Store
	applier *inventory.MovementApplier
	queries *inventory.StockQueryUseCase
	rebuild *inventory.RebuildUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedWarehouse(&entity.Warehouse{ID: whStrict, Name: "Principal", AllowNegative: false})
	store.SeedWarehouse(&entity.Warehouse{ID: whNegative, Name: "Merma", AllowNegative: true})
	store.SeedConcept(&entity.Concept{ID: conceptPurchase, Code: "compra", Direction: entity.DirectionInbound, AffectsCost: true})
	store.SeedConcept(&entity.Concept{ID: conceptSale, Code: "venta", Direction: entity.DirectionOutbound})
	store.SeedConcept(&entity.Concept{ID: conceptAdjustIn, Code: "ajuste-entrada", Direction: entity.DirectionInbound, AffectsCost: false})

	txRunner := memory.NewTxRunner(store)
	conceptRepo := memory.NewConceptRepository(store)
	warehouseRepo := memory.NewWarehouseRepository(store)
	stockRepo := memory.NewStockRepository(store)
	ledgerRepo := memory.NewLedgerRepository(store)
	locks := keylock.New()
	cfg := inventory.DefaultConfig()

	return &fixture{
		store:   store,
		applier: inventory.NewMovementApplier(txRunner, conceptRepo, warehouseRepo, locks, nil, cfg, nil),
		queries: inventory.NewStockQueryUseCase(stockRepo, ledgerRepo),
		rebuild: inventory.NewRebuildUseCase(txRunner, stockRepo, ledgerRepo, conceptRepo, locks, cfg),
	}
}

func (f *fixture) mustApply(t *testing.T, input inventory.MovementInput) *entity.LedgerEntry {
	t.Helper()
	entry, err := f.applier.ApplyMovement(context.Background(), input)
	require.NoError(t, err)
	return entry
}

func purchase(warehouseID, productID, qty, cost string) inventory.MovementInput {
	return inventory.MovementInput{
		WarehouseID:   warehouseID,
		ProductID:     productID,
		ConceptID:     conceptPurchase,
		Quantity:      dec(qty),
		UnitCost:      decPtr(cost),
		ReferenceType: entity.ReferenceTypePurchase,
		ReferenceID:   "oc-1",
		ActorID:       "user-1",
	}
}

func sale(warehouseID, productID, qty string) inventory.MovementInput {
	return inventory.MovementInput{
		WarehouseID:   warehouseID,
		ProductID:     productID,
		ConceptID:     conceptSale,
		Quantity:      dec(qty),
		ReferenceType: entity.ReferenceTypeSale,
		ReferenceID:   "fac-1",
		ActorID:       "user-1",
	}
}

func TestApplyMovement_EntradaRecalculaPromedio(t *testing.T) {
	f := newFixture(t)

	f.mustApply(t, purchase(whStrict, "p1", "10", "5.00"))
	entry := f.mustApply(t, purchase(whStrict, "p1", "10", "7.00"))

	// Lectura inmediata post-escritura debe reflejar el nuevo estado.
	stock, err := f.queries.GetStock(whStrict, "p1")
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(stock.Quantity), "cantidad esperada 20, obtuvo %s", stock.Quantity)
	assert.True(t, dec("6.00").Equal(stock.AverageCost), "costo esperado 6.00, obtuvo %s", stock.AverageCost)

	assert.True(t, dec("10").Equal(entry.QuantityBefore))
	assert.True(t, dec("20").Equal(entry.QuantityAfter))
	assert.True(t, dec("70.00").Equal(entry.TotalCost), "total_cost = |cantidad| * costo unitario")
}

func TestApplyMovement_SalidaNoCambiaCosto(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, purchase(whStrict, "p1", "10", "5.00"))

	entry := f.mustApply(t, sale(whStrict, "p1", "4"))

	stock, err := f.queries.GetStock(whStrict, "p1")
	require.NoError(t, err)
	assert.True(t, dec("6").Equal(stock.Quantity))
	assert.True(t, dec("5.00").Equal(stock.AverageCost), "una salida jamás toca el costo promedio")
	assert.True(t, dec("-4").Equal(entry.SignedQuantity), "la salida se asienta con cantidad negativa")
	assert.True(t, dec("5.00").Equal(entry.UnitCost), "la salida sale al costo promedio vigente")
}

func TestApplyMovement_EntradaSinRecalculoMantieneCosto(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, purchase(whStrict, "p1", "10", "5.00"))

	// Ajuste de entrada con AffectsCost=false: suma cantidad, costo intacto.
	f.mustApply(t, inventory.MovementInput{
		WarehouseID:   whStrict,
		ProductID:     "p1",
		ConceptID:     conceptAdjustIn,
		Quantity:      dec("5"),
		ReferenceType: entity.ReferenceTypeAdjustment,
		ReferenceID:   "aj-1",
		ActorID:       "user-1",
	})

	stock, err := f.queries.GetStock(whStrict, "p1")
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(stock.Quantity))
	assert.True(t, dec("5.00").Equal(stock.AverageCost))
}

func TestApplyMovement_StockInsuficiente(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, purchase(whStrict, "p1", "3", "1.00"))

	_, err := f.applier.ApplyMovement(context.Background(), sale(whStrict, "p1", "5"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// El intento fallido no debe dejar rastro: ni stock ni ledger.
	stock, err := f.queries.GetStock(whStrict, "p1")
	require.NoError(t, err)
	assert.True(t, dec("3").Equal(stock.Quantity))
	entries, err := f.queries.ListMovements(whStrict, "p1", 100, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApplyMovement_BodegaPermiteNegativo(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, purchase(whNegative, "p1", "3", "1.00"))

	f.mustApply(t, sale(whNegative, "p1", "5"))

	stock, err := f.queries.GetStock(whNegative, "p1")
	require.NoError(t, err)
	assert.True(t, dec("-2").Equal(stock.Quantity), "la política explícita permite quedar bajo cero")
}

func TestApplyMovement_Validaciones(t *testing.T) {
	f := newFixture(t)

	_, err := f.applier.ApplyMovement(context.Background(), sale(whStrict, "p1", "0"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "magnitud cero es bug del caller")

	bad := sale(whStrict, "p1", "1")
	bad.ConceptID = "no-existe"
	_, err = f.applier.ApplyMovement(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrUnknownConcept)

	bad = purchase("bodega-fantasma", "p1", "1", "1.00")
	_, err = f.applier.ApplyMovement(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	noCost := purchase(whStrict, "p1", "1", "1.00")
	noCost.UnitCost = nil
	_, err = f.applier.ApplyMovement(context.Background(), noCost)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "entrada que recalcula costo exige costo unitario")
}

// TestApplyMovement_CarreraDecrementosConcurrentes es la regresión canónica de
// la serialización por clave: N salidas concurrentes de 1 contra stock N deben
// terminar exactamente en 0, sin lost updates.
func TestApplyMovement_CarreraDecrementosConcurrentes(t *testing.T) {
	f := newFixture(t)
	const n = 40
	f.mustApply(t, purchase(whStrict, "p1", "40", "2.00"))

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.applier.ApplyMovement(context.Background(), sale(whStrict, "p1", "1"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stock, err := f.queries.GetStock(whStrict, "p1")
	require.NoError(t, err)
	assert.True(t, stock.Quantity.IsZero(), "esperaba 0, obtuvo %s", stock.Quantity)

	// Conservación: la proyección iguala la suma del ledger.
	report, err := f.rebuild.CheckConservation(whStrict, "p1")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	// Encadenamiento: sin huecos entre before/after.
	require.NoError(t, f.rebuild.CheckChaining(whStrict, "p1"))

	entries, err := f.queries.ListMovements(whStrict, "p1", n+1, 0)
	require.NoError(t, err)
	assert.Len(t, entries, n+1, "un asiento por movimiento, ni más ni menos")
}

func TestApplyMovement_ClavesDistintasNoSeBloquean(t *testing.T) {
	f := newFixture(t)
	f.mustApply(t, purchase(whStrict, "p1", "5", "1.00"))
	f.mustApply(t, purchase(whNegative, "p1", "5", "1.00"))

	// Misma referencia de producto en bodegas distintas: claves independientes.
	var wg sync.WaitGroup
	for _, wh := range []string{whStrict, whNegative} {
		wg.Add(1)
		go func(wh string) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := f.applier.ApplyMovement(context.Background(), sale(wh, "p1", "1"))
				assert.NoError(t, err)
			}
		}(wh)
	}
	wg.Wait()

	for _, wh := range []string{whStrict, whNegative} {
		stock, err := f.queries.GetStock(wh, "p1")
		require.NoError(t, err)
		assert.True(t, stock.Quantity.IsZero(), "bodega %s debió quedar en 0", wh)
	}
}

func TestApplyMovement_TimeoutDeLockEsReintentable(t *testing.T) {
	store := memory.NewStore()
	store.SeedWarehouse(&entity.Warehouse{ID: whStrict, Name: "Principal"})
	store.SeedConcept(&entity.Concept{ID: conceptPurchase, Code: "compra", Direction: entity.DirectionInbound, AffectsCost: true})
	locks := keylock.New()
	cfg := inventory.Config{LockTimeout: 30 * time.Millisecond, MaxRetries: 1, RetryBackoff: 5 * time.Millisecond}
	applier := inventory.NewMovementApplier(
		memory.NewTxRunner(store),
		memory.NewConceptRepository(store),
		memory.NewWarehouseRepository(store),
		locks, nil, cfg, nil,
	)

	// Ocupa la clave por fuera del applier durante más que timeout+reintento.
	release, err := locks.Acquire(context.Background(), whStrict+"|p1")
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(200 * time.Millisecond)
		release()
	}()

	_, err = applier.ApplyMovement(context.Background(), purchase(whStrict, "p1", "1", "1.00"))
	assert.ErrorIs(t, err, domain.ErrConcurrencyTimeout)
	<-done

	// Con la clave libre, el mismo movimiento pasa.
	_, err = applier.ApplyMovement(context.Background(), purchase(whStrict, "p1", "1", "1.00"))
	assert.NoError(t, err)
}
