package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	domaininv "github.com/tu-usuario/kardex-engine/internal/domain/inventory"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
	"github.com/tu-usuario/kardex-engine/pkg/keylock"
	"github.com/tu-usuario/kardex-engine/pkg/logger"
)

// Config parámetros de concurrencia y reintentos del applier.
type Config struct {
	LockTimeout  time.Duration // espera máxima por el lock de la clave
	MaxRetries   int           // reintentos ante ErrConcurrencyTimeout / ErrStorageFailure
	RetryBackoff time.Duration // backoff base entre reintentos (crece linealmente)
}

// DefaultConfig valores razonables para uso embebido y tests.
func DefaultConfig() Config {
	return Config{
		LockTimeout:  3 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 50 * time.Millisecond,
	}
}

// MovementInput entrada para aplicar un movimiento. Quantity es siempre una
// magnitud positiva; el signo lo determina la dirección del concepto.
// UnitCost es obligatorio en entradas cuyo concepto recalcula costo; en
// salidas se ignora y el asiento sale al costo promedio vigente.
type MovementInput struct {
	WarehouseID   string
	ProductID     string
	ConceptID     string
	Quantity      decimal.Decimal
	UnitCost      *decimal.Decimal
	ReferenceType string // SALE, PURCHASE, ADJUSTMENT, TRANSFER
	ReferenceID   string
	ActorID       string
	Notes         string
}

// MovementApplier es el único componente que muta el Stock Store. Serializa
// el read-modify-write por clave (warehouse_id, product_id) con un lock por
// clave de espera acotada, y persiste stock + asiento del ledger en una sola
// transacción vía TxRunner.
type MovementApplier struct {
	txRunner      TxRunner
	conceptRepo   repository.ConceptRepository
	warehouseRepo repository.WarehouseRepository
	locks         *keylock.KeyLock
	log           *logger.Logger
	cfg           Config
	now           func() time.Time
}

// NewMovementApplier construye el applier. clock puede ser nil (usa time.Now);
// inyectarlo permite que el proveedor de identidad/reloj del sistema mayor
// controle OccurredAt.
func NewMovementApplier(
	txRunner TxRunner,
	conceptRepo repository.ConceptRepository,
	warehouseRepo repository.WarehouseRepository,
	locks *keylock.KeyLock,
	log *logger.Logger,
	cfg Config,
	clock func() time.Time,
) *MovementApplier {
	if clock == nil {
		clock = time.Now
	}
	if locks == nil {
		locks = keylock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MovementApplier{
		txRunner:      txRunner,
		conceptRepo:   conceptRepo,
		warehouseRepo: warehouseRepo,
		locks:         locks,
		log:           log,
		cfg:           cfg,
		now:           clock,
	}
}

// stockKey es la granularidad exacta del lock: el par bodega+producto.
func stockKey(warehouseID, productID string) string {
	return warehouseID + "|" + productID
}

// ApplyMovement valida la entrada, resuelve concepto y bodega, y aplica el
// movimiento con reintentos acotados ante errores transitorios
// (ErrConcurrencyTimeout, ErrStorageFailure). Los errores de negocio
// (stock insuficiente, cantidad inválida, concepto desconocido) se devuelven
// de inmediato: la decisión de reintentar es del caller.
func (a *MovementApplier) ApplyMovement(ctx context.Context, input MovementInput) (*entity.LedgerEntry, error) {
	if !input.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}

	concept, err := a.conceptRepo.GetByID(input.ConceptID)
	if err != nil {
		return nil, fmt.Errorf("resolver concepto: %w", err)
	}
	if concept == nil {
		// Error de configuración/programación: loguear fuerte, no reintentar.
		a.log.Error().
			Str("concept_id", input.ConceptID).
			Str("warehouse_id", input.WarehouseID).
			Str("product_id", input.ProductID).
			Msg("movimiento rechazado: concepto no existe en el catálogo")
		return nil, domain.ErrUnknownConcept
	}

	warehouse, err := a.warehouseRepo.GetByID(input.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("resolver bodega: %w", err)
	}
	if warehouse == nil {
		return nil, domain.ErrNotFound
	}

	if concept.IsInbound() && concept.AffectsCost {
		if input.UnitCost == nil || input.UnitCost.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
	}

	var entry *entity.LedgerEntry
	attempts := a.cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		entry, err = a.applyOnce(ctx, input, concept, warehouse)
		if err == nil {
			return entry, nil
		}
		if attempt >= attempts || !isRetryable(err) {
			return nil, err
		}
		a.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("warehouse_id", input.WarehouseID).
			Str("product_id", input.ProductID).
			Msg("reintentando movimiento")
		select {
		case <-time.After(a.cfg.RetryBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyTimeout, ctx.Err())
		}
	}
}

// applyOnce ejecuta un intento: lock por clave con espera acotada, luego la
// sección crítica dentro de una transacción (ambas escrituras o ninguna).
func (a *MovementApplier) applyOnce(ctx context.Context, input MovementInput, concept *entity.Concept, warehouse *entity.Warehouse) (*entity.LedgerEntry, error) {
	lockCtx, cancel := context.WithTimeout(ctx, a.cfg.LockTimeout)
	defer cancel()
	release, err := a.locks.Acquire(lockCtx, stockKey(input.WarehouseID, input.ProductID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyTimeout, err)
	}
	defer release()

	var entry *entity.LedgerEntry
	err = a.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
	) error {
		stock, err := stockRepo.GetForUpdate(input.WarehouseID, input.ProductID)
		if err != nil {
			return err
		}

		if concept.IsOutbound() {
			if err := domaininv.ValidateOutbound(stock.Quantity, input.Quantity, warehouse.AllowNegative); err != nil {
				return err
			}
		}

		signed := input.Quantity
		if concept.IsOutbound() {
			signed = signed.Neg()
		}

		// Costo del asiento: el dado en entradas; en salidas siempre el
		// promedio vigente (el costo del caller se ignora).
		unitCost := stock.AverageCost
		if concept.IsInbound() && input.UnitCost != nil {
			unitCost = *input.UnitCost
		}

		newCost := stock.AverageCost
		if concept.IsInbound() && concept.AffectsCost {
			newCost, err = domaininv.ComputeInbound(stock.Quantity, stock.AverageCost, input.Quantity, unitCost)
			if err != nil {
				return err
			}
		}

		now := a.now()
		before := stock.Quantity
		after := before.Add(signed)

		stock.Quantity = after
		stock.AverageCost = newCost
		stock.LastMovementAt = now
		if err := stockRepo.Upsert(stock); err != nil {
			return err
		}

		entry = &entity.LedgerEntry{
			ID:             uuid.New().String(),
			WarehouseID:    input.WarehouseID,
			ProductID:      input.ProductID,
			ConceptID:      concept.ID,
			SignedQuantity: signed,
			UnitCost:       unitCost,
			TotalCost:      signed.Abs().Mul(unitCost),
			QuantityBefore: before,
			QuantityAfter:  after,
			ReferenceType:  input.ReferenceType,
			ReferenceID:    input.ReferenceID,
			ActorID:        input.ActorID,
			OccurredAt:     now,
			Notes:          input.Notes,
		}
		return ledgerRepo.Append(entry)
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		// Cualquier fallo del storage dejó la transacción sin efecto; el
		// caller (o el loop de reintentos) puede volver a intentar.
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return entry, nil
}

// isDomainError distingue los errores de negocio de los fallos de
// infraestructura: los primeros no se envuelven en ErrStorageFailure.
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrUnknownConcept) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}

func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrConcurrencyTimeout) ||
		errors.Is(err, domain.ErrStorageFailure)
}
