// Package transfer implementa el coordinador de traslados entre bodegas en
// dos fases independientes: enviar (salida en el origen) y recibir (entrada en
// el destino). No existe transacción atómica entre las dos bodegas: entre
// ambas fases la mercancía está legítimamente "en tránsito".
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/application/inventory"
	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
	"github.com/tu-usuario/kardex-engine/pkg/keylock"
	"github.com/tu-usuario/kardex-engine/pkg/logger"
)

// MovementApplier es lo único que el coordinador necesita del motor de
// movimientos: cada fase es un ApplyMovement normal sobre su propia bodega.
type MovementApplier interface {
	ApplyMovement(ctx context.Context, input inventory.MovementInput) (*entity.LedgerEntry, error)
}

// Concepts IDs estables de los conceptos de traspaso en el catálogo.
// Se configuran por identificador, nunca por substring del nombre.
type Concepts struct {
	TransferOutID string // OUTBOUND, no recalcula costo
	TransferInID  string // INBOUND, AffectsCost=true: el destino mezcla su propio promedio
}

// LineInput línea solicitada al crear o editar un borrador.
type LineInput struct {
	ProductID string
	Quantity  decimal.Decimal
}

// UseCase coordina el ciclo de vida de las órdenes de traslado.
// Serializa las operaciones por orden con un lock por transfer_id; los
// movimientos de stock ya se serializan por su propia clave en el applier.
type UseCase struct {
	applier       MovementApplier
	transferRepo  repository.TransferOrderRepository
	warehouseRepo repository.WarehouseRepository
	concepts      Concepts
	locks         *keylock.KeyLock
	log           *logger.Logger
	lockTimeout   time.Duration
	now           func() time.Time
}

// NewUseCase construye el coordinador. clock puede ser nil (usa time.Now).
func NewUseCase(
	applier MovementApplier,
	transferRepo repository.TransferOrderRepository,
	warehouseRepo repository.WarehouseRepository,
	concepts Concepts,
	log *logger.Logger,
	lockTimeout time.Duration,
	clock func() time.Time,
) *UseCase {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &UseCase{
		applier:       applier,
		transferRepo:  transferRepo,
		warehouseRepo: warehouseRepo,
		concepts:      concepts,
		locks:         keylock.New(),
		log:           log,
		lockTimeout:   lockTimeout,
		now:           clock,
	}
}

// CreateDraft crea una orden en DRAFT, sin efecto sobre stock.
func (uc *UseCase) CreateDraft(ctx context.Context, sourceWarehouseID, destWarehouseID, actorID string, lines []LineInput) (*entity.TransferOrder, error) {
	if sourceWarehouseID == destWarehouseID {
		return nil, domain.ErrInvalidInput
	}
	for _, id := range []string{sourceWarehouseID, destWarehouseID} {
		wh, err := uc.warehouseRepo.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("resolver bodega: %w", err)
		}
		if wh == nil {
			return nil, domain.ErrNotFound
		}
	}
	orderLines, err := buildLines(lines)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	order := &entity.TransferOrder{
		ID:                uuid.New().String(),
		SourceWarehouseID: sourceWarehouseID,
		DestWarehouseID:   destWarehouseID,
		Status:            entity.TransferStatusDraft,
		Lines:             orderLines,
		CreatedBy:         actorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.transferRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// EditDraft reemplaza las líneas de un borrador por completo. Solo en DRAFT.
func (uc *UseCase) EditDraft(ctx context.Context, transferID string, lines []LineInput) (*entity.TransferOrder, error) {
	release, err := uc.acquire(ctx, transferID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := uc.getOrder(transferID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.TransferStatusDraft {
		return nil, domain.ErrConflict
	}
	orderLines, err := buildLines(lines)
	if err != nil {
		return nil, err
	}
	order.Lines = orderLines
	order.UpdatedAt = uc.now()
	if err := uc.transferRepo.Save(order); err != nil {
		return nil, err
	}
	return order, nil
}

// Send ejecuta la fase de envío: por cada línea indicada aplica una salida en
// la bodega origen con el concepto traspaso-salida, congela UnitCostAtSend al
// costo promedio del origen en el primer envío, y pasa la orden a IN_TRANSIT.
// Admite envíos por lotes (puede llamarse de nuevo estando IN_TRANSIT).
func (uc *UseCase) Send(ctx context.Context, transferID, actorID string, quantities map[string]decimal.Decimal) (*entity.TransferOrder, error) {
	release, err := uc.acquire(ctx, transferID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := uc.getOrder(transferID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.TransferStatusDraft && order.Status != entity.TransferStatusInTransit {
		return nil, domain.ErrConflict
	}
	if len(quantities) == 0 {
		return nil, domain.ErrInvalidInput
	}

	// Validar todo antes de mover nada: así el único fallo posible a mitad de
	// camino es de storage, nunca de negocio.
	for productID, qty := range quantities {
		i := order.Line(productID)
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		if !qty.GreaterThan(decimal.Zero) {
			return nil, domain.ErrInvalidQuantity
		}
		if order.Lines[i].QuantitySent.Add(qty).GreaterThan(order.Lines[i].QuantityRequested) {
			return nil, fmt.Errorf("%w: el envío excede lo solicitado para %s", domain.ErrInvalidInput, productID)
		}
	}

	for i := range order.Lines {
		qty, ok := quantities[order.Lines[i].ProductID]
		if !ok {
			continue
		}
		entry, err := uc.applier.ApplyMovement(ctx, inventory.MovementInput{
			WarehouseID:   order.SourceWarehouseID,
			ProductID:     order.Lines[i].ProductID,
			ConceptID:     uc.concepts.TransferOutID,
			Quantity:      qty,
			ReferenceType: entity.ReferenceTypeTransfer,
			ReferenceID:   order.ID,
			ActorID:       actorID,
		})
		if err != nil {
			// Lo ya enviado quedó en el ledger: persistir el avance parcial
			// antes de devolver el error.
			uc.saveProgress(order)
			return nil, err
		}
		if order.Lines[i].QuantitySent.IsZero() {
			// Costo del origen al momento del envío, congelado para la recepción.
			order.Lines[i].UnitCostAtSend = entry.UnitCost
		}
		order.Lines[i].QuantitySent = order.Lines[i].QuantitySent.Add(qty)
		order.Status = entity.TransferStatusInTransit
		order.UpdatedAt = uc.now()
	}

	if err := uc.transferRepo.Save(order); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return order, nil
}

// Receive ejecuta la fase de recepción: por cada línea aplica una entrada en
// la bodega destino al costo congelado en el envío; el destino recalcula su
// propio promedio ponderado. La orden queda RECEIVED cuando toda línea
// cumple recibido == enviado, si no PARTIALLY_RECEIVED.
func (uc *UseCase) Receive(ctx context.Context, transferID, actorID string, quantities map[string]decimal.Decimal) (*entity.TransferOrder, error) {
	release, err := uc.acquire(ctx, transferID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := uc.getOrder(transferID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.TransferStatusInTransit && order.Status != entity.TransferStatusPartiallyReceived {
		return nil, domain.ErrConflict
	}
	if len(quantities) == 0 {
		return nil, domain.ErrInvalidInput
	}

	for productID, qty := range quantities {
		i := order.Line(productID)
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		if !qty.GreaterThan(decimal.Zero) {
			return nil, domain.ErrInvalidQuantity
		}
		if order.Lines[i].QuantityReceived.Add(qty).GreaterThan(order.Lines[i].QuantitySent) {
			return nil, fmt.Errorf("%w: la recepción excede lo enviado para %s", domain.ErrInvalidInput, productID)
		}
	}

	for i := range order.Lines {
		qty, ok := quantities[order.Lines[i].ProductID]
		if !ok {
			continue
		}
		unitCost := order.Lines[i].UnitCostAtSend
		_, err := uc.applier.ApplyMovement(ctx, inventory.MovementInput{
			WarehouseID:   order.DestWarehouseID,
			ProductID:     order.Lines[i].ProductID,
			ConceptID:     uc.concepts.TransferInID,
			Quantity:      qty,
			UnitCost:      &unitCost,
			ReferenceType: entity.ReferenceTypeTransfer,
			ReferenceID:   order.ID,
			ActorID:       actorID,
		})
		if err != nil {
			uc.saveProgress(order)
			return nil, err
		}
		order.Lines[i].QuantityReceived = order.Lines[i].QuantityReceived.Add(qty)
		order.Status = entity.TransferStatusPartiallyReceived
		order.UpdatedAt = uc.now()
	}

	if order.FullyReceived() {
		order.Status = entity.TransferStatusReceived
	} else {
		order.Status = entity.TransferStatusPartiallyReceived
	}
	if err := uc.transferRepo.Save(order); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return order, nil
}

// CancelDraft cancela un borrador. Una orden IN_TRANSIT no se cancela: se
// resuelve completando la recepción o con un movimiento compensatorio del
// workflow que la originó.
func (uc *UseCase) CancelDraft(ctx context.Context, transferID string) (*entity.TransferOrder, error) {
	release, err := uc.acquire(ctx, transferID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := uc.getOrder(transferID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.TransferStatusDraft {
		return nil, domain.ErrConflict
	}
	order.Status = entity.TransferStatusCancelled
	order.UpdatedAt = uc.now()
	if err := uc.transferRepo.Save(order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteDraft borra un borrador. Solo DRAFT puede borrarse.
func (uc *UseCase) DeleteDraft(ctx context.Context, transferID string) error {
	release, err := uc.acquire(ctx, transferID)
	if err != nil {
		return err
	}
	defer release()
	return uc.transferRepo.DeleteDraft(transferID)
}

// GetByID devuelve la orden, o ErrNotFound.
func (uc *UseCase) GetByID(transferID string) (*entity.TransferOrder, error) {
	return uc.getOrder(transferID)
}

func (uc *UseCase) acquire(ctx context.Context, transferID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, uc.lockTimeout)
	defer cancel()
	release, err := uc.locks.Acquire(lockCtx, transferID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyTimeout, err)
	}
	return release, nil
}

func (uc *UseCase) getOrder(transferID string) (*entity.TransferOrder, error) {
	order, err := uc.transferRepo.GetByID(transferID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// saveProgress persiste lo avanzado cuando una fase falla a mitad de camino:
// los movimientos ya aplicados son asientos reales del ledger y la orden debe
// reflejarlos.
func (uc *UseCase) saveProgress(order *entity.TransferOrder) {
	if err := uc.transferRepo.Save(order); err != nil {
		uc.log.Error().Err(err).Str("transfer_id", order.ID).
			Msg("no se pudo persistir el avance parcial del traslado")
	}
}

func buildLines(lines []LineInput) ([]entity.TransferLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	seen := make(map[string]bool, len(lines))
	out := make([]entity.TransferLine, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || seen[l.ProductID] {
			return nil, domain.ErrInvalidInput
		}
		if !l.Quantity.GreaterThan(decimal.Zero) {
			return nil, domain.ErrInvalidQuantity
		}
		seen[l.ProductID] = true
		out = append(out, entity.TransferLine{
			ProductID:         l.ProductID,
			QuantityRequested: l.Quantity,
			QuantitySent:      decimal.Zero,
			QuantityReceived:  decimal.Zero,
			UnitCostAtSend:    decimal.Zero,
		})
	}
	return out, nil
}
