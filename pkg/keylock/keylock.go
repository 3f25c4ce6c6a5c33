// Package keylock provee exclusión mutua por clave arbitraria: dos claves
// distintas nunca se bloquean entre sí, y la espera por una clave ocupada es
// acotada por el contexto del caller.
package keylock

import (
	"context"
	"sync"
)

type slot struct {
	ch   chan struct{} // capacidad 1: el token dentro es "lock tomado"
	refs int
}

// KeyLock serializa secciones críticas por clave. La granularidad es
// exactamente la clave: no hay lock global más allá del mapa interno.
type KeyLock struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// New construye un KeyLock vacío.
func New() *KeyLock {
	return &KeyLock{slots: make(map[string]*slot)}
}

// Acquire toma el lock de la clave, esperando como máximo hasta que ctx
// expire. Devuelve la función de liberación, o el error del contexto si no se
// pudo adquirir a tiempo.
func (l *KeyLock) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			l.release(key, s)
		}, nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}
}

// release descuenta la referencia y limpia el slot cuando nadie más lo espera,
// para que el mapa no crezca con claves que ya no se usan.
func (l *KeyLock) release(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
