package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationStore)(nil)

type reservationEntry struct {
	reservation entity.Reservation
	evictAt     time.Time // cero = sin TTL
}

// ReservationStore almacén de reservas en memoria con TTL por entrada (desalojo perezoso al leer).
type ReservationStore struct {
	mu      sync.Mutex
	entries map[string]reservationEntry
	now     func() time.Time
}

// NewReservationStore crea un almacén vacío. now puede ser nil (usa time.Now).
func NewReservationStore(now func() time.Time) *ReservationStore {
	if now == nil {
		now = time.Now
	}
	return &ReservationStore{entries: make(map[string]reservationEntry), now: now}
}

func copyReservation(r entity.Reservation) *entity.Reservation {
	r.Items = append([]entity.ReservationItem(nil), r.Items...)
	return &r
}

// lookup debe llamarse con el lock tomado; desaloja entradas con TTL vencido.
func (s *ReservationStore) lookup(id string) (reservationEntry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return e, false
	}
	if !e.evictAt.IsZero() && !s.now().Before(e.evictAt) {
		delete(s.entries, id)
		return e, false
	}
	return e, true
}

func (s *ReservationStore) entry(r *entity.Reservation, ttl time.Duration) reservationEntry {
	e := reservationEntry{reservation: *copyReservation(*r)}
	if ttl > 0 {
		e.evictAt = s.now().Add(ttl)
	}
	return e
}

// Put guarda (o sobrescribe) la reserva con el TTL indicado.
func (s *ReservationStore) Put(_ context.Context, reservation *entity.Reservation, ttl time.Duration) error {
	if reservation == nil || reservation.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[reservation.ID] = s.entry(reservation, ttl)
	return nil
}

// Get devuelve una copia de la reserva o domain.ErrNotFound.
func (s *ReservationStore) Get(_ context.Context, id string) (*entity.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyReservation(e.reservation), nil
}

// Delete elimina la reserva; devuelve si existía.
func (s *ReservationStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// Exists indica si la reserva sigue almacenada.
func (s *ReservationStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookup(id)
	return ok, nil
}

// CompareAndSwap reemplaza la reserva si la versión almacenada es expectedVersion.
func (s *ReservationStore) CompareAndSwap(_ context.Context, expectedVersion int64, next *entity.Reservation, ttl time.Duration) (bool, error) {
	if next == nil || next.ID == "" {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(next.ID)
	if !ok || e.reservation.Version != expectedVersion {
		return false, nil
	}
	s.entries[next.ID] = s.entry(next, ttl)
	return true, nil
}

// ListExpired devuelve IDs de reservas PENDING vencidas, las más antiguas primero.
func (s *ReservationStore) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []entity.Reservation
	for id := range s.entries {
		e, ok := s.lookup(id)
		if !ok {
			continue
		}
		r := e.reservation
		if r.Status == entity.ReservationStatusPending && r.ExpiresAt.Before(now) {
			expired = append(expired, r)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, 0, len(expired))
	for _, r := range expired {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
