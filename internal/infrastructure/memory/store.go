// Package memory implementa los puertos del motor sobre estructuras en
// memoria protegidas con RWMutex. Sirve para tests y para uso embebido sin
// PostgreSQL; la semántica (registro cero por defecto, ledger append-only,
// (nil, nil) en lecturas sin resultado) es la misma del adaptador postgres.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/entity"
	"github.com/tu-usuario/kardex-engine/internal/domain/repository"
)

// Store guarda todo el estado del motor en memoria.
type Store struct {
	mu         sync.RWMutex
	stock      map[string]*entity.StockRecord // clave warehouse|product
	ledger     []*entity.LedgerEntry          // orden de inserción = orden cronológico
	ledgerByID map[string]*entity.LedgerEntry
	concepts   map[string]*entity.Concept
	warehouses map[string]*entity.Warehouse
	transfers  map[string]*entity.TransferOrder
}

// NewStore construye un Store vacío.
func NewStore() *Store {
	return &Store{
		stock:      make(map[string]*entity.StockRecord),
		ledgerByID: make(map[string]*entity.LedgerEntry),
		concepts:   make(map[string]*entity.Concept),
		warehouses: make(map[string]*entity.Warehouse),
		transfers:  make(map[string]*entity.TransferOrder),
	}
}

func key(warehouseID, productID string) string {
	return warehouseID + "|" + productID
}

// SeedConcept registra un concepto en el catálogo (el catálogo es de un
// colaborador externo; este helper hace sus veces en memoria).
func (s *Store) SeedConcept(c *entity.Concept) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.concepts[c.ID] = &cp
}

// SeedWarehouse registra una bodega.
func (s *Store) SeedWarehouse(w *entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.warehouses[w.ID] = &cp
}

// ---- StockRepository ----

type stockRepo struct{ s *Store }

var _ repository.StockRepository = (*stockRepo)(nil)

// NewStockRepository adaptador de stock sobre el Store.
func NewStockRepository(s *Store) repository.StockRepository { return &stockRepo{s: s} }

func (r *stockRepo) Get(warehouseID, productID string) (*entity.StockRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if rec, ok := r.s.stock[key(warehouseID, productID)]; ok {
		cp := *rec
		return &cp, nil
	}
	return entity.NewZeroStockRecord(warehouseID, productID), nil
}

// GetForUpdate en memoria equivale a Get: la serialización la da el lock por
// clave del applier, no el storage.
func (r *stockRepo) GetForUpdate(warehouseID, productID string) (*entity.StockRecord, error) {
	return r.Get(warehouseID, productID)
}

func (r *stockRepo) Upsert(record *entity.StockRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *record
	r.s.stock[key(record.WarehouseID, record.ProductID)] = &cp
	return nil
}

func (r *stockRepo) ListByWarehouse(warehouseID string, limit, offset int) ([]*entity.StockRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.StockRecord
	for k, rec := range r.s.stock {
		if strings.HasPrefix(k, warehouseID+"|") {
			cp := *rec
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ProductID < list[j].ProductID })
	return paginate(list, limit, offset), nil
}

// ---- LedgerRepository ----

type ledgerRepo struct{ s *Store }

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

// NewLedgerRepository adaptador del ledger sobre el Store.
func NewLedgerRepository(s *Store) repository.LedgerRepository { return &ledgerRepo{s: s} }

func (r *ledgerRepo) Append(entry *entity.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ledgerByID[entry.ID]; ok {
		return domain.ErrConflict
	}
	cp := *entry
	r.s.ledger = append(r.s.ledger, &cp)
	r.s.ledgerByID[cp.ID] = &cp
	return nil
}

func (r *ledgerRepo) GetByID(id string) (*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if e, ok := r.s.ledgerByID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (r *ledgerRepo) ListByKey(warehouseID, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.LedgerEntry
	for _, e := range r.s.ledger {
		if e.WarehouseID == warehouseID && e.ProductID == productID {
			cp := *e
			list = append(list, &cp)
		}
	}
	return paginate(list, limit, offset), nil
}

func (r *ledgerRepo) ListByWarehouse(warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.LedgerEntry
	for _, e := range r.s.ledger {
		if e.WarehouseID != warehouseID {
			continue
		}
		if from != nil && e.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && e.OccurredAt.After(*to) {
			continue
		}
		cp := *e
		list = append(list, &cp)
	}
	return paginate(list, limit, offset), nil
}

func (r *ledgerRepo) SumByKey(warehouseID, productID string) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range r.s.ledger {
		if e.WarehouseID == warehouseID && e.ProductID == productID {
			sum = sum.Add(e.SignedQuantity)
		}
	}
	return sum, nil
}

// ---- ConceptRepository ----

type conceptRepo struct{ s *Store }

var _ repository.ConceptRepository = (*conceptRepo)(nil)

// NewConceptRepository adaptador del catálogo de conceptos sobre el Store.
func NewConceptRepository(s *Store) repository.ConceptRepository { return &conceptRepo{s: s} }

func (r *conceptRepo) GetByID(id string) (*entity.Concept, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.concepts[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *conceptRepo) GetByCode(code string) (*entity.Concept, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.concepts {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *conceptRepo) List() ([]*entity.Concept, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Concept, 0, len(r.s.concepts))
	for _, c := range r.s.concepts {
		cp := *c
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

// ---- WarehouseRepository ----

type warehouseRepo struct{ s *Store }

var _ repository.WarehouseRepository = (*warehouseRepo)(nil)

// NewWarehouseRepository adaptador de bodegas sobre el Store.
func NewWarehouseRepository(s *Store) repository.WarehouseRepository { return &warehouseRepo{s: s} }

func (r *warehouseRepo) GetByID(id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if w, ok := r.s.warehouses[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

// ---- TransferOrderRepository ----

type transferRepo struct{ s *Store }

var _ repository.TransferOrderRepository = (*transferRepo)(nil)

// NewTransferRepository adaptador de órdenes de traslado sobre el Store.
func NewTransferRepository(s *Store) repository.TransferOrderRepository { return &transferRepo{s: s} }

func cloneTransfer(o *entity.TransferOrder) *entity.TransferOrder {
	cp := *o
	cp.Lines = make([]entity.TransferLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	return &cp
}

func (r *transferRepo) Create(order *entity.TransferOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transfers[order.ID]; ok {
		return domain.ErrConflict
	}
	r.s.transfers[order.ID] = cloneTransfer(order)
	return nil
}

func (r *transferRepo) GetByID(id string) (*entity.TransferOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if o, ok := r.s.transfers[id]; ok {
		return cloneTransfer(o), nil
	}
	return nil, nil
}

func (r *transferRepo) Save(order *entity.TransferOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transfers[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.transfers[order.ID] = cloneTransfer(order)
	return nil
}

func (r *transferRepo) DeleteDraft(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.transfers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != entity.TransferStatusDraft {
		return domain.ErrConflict
	}
	delete(r.s.transfers, id)
	return nil
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
