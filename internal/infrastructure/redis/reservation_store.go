package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-reservations/internal/domain"
	"github.com/jhoicas/stock-reservations/internal/domain/entity"
	"github.com/jhoicas/stock-reservations/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationStore)(nil)

// casScript reemplaza la reserva solo si la versión almacenada coincide y mantiene el índice de expiración
// en la misma operación atómica. Devuelve 1 si escribió, 0 ante conflicto, -1 si la clave no existe.
var casScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return -1
end
local decoded = cjson.decode(current)
if tonumber(decoded['version']) ~= tonumber(ARGV[1]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
if ARGV[4] == '1' then
	redis.call('ZADD', KEYS[2], ARGV[5], ARGV[6])
else
	redis.call('ZREM', KEYS[2], ARGV[6])
end
return 1
`)

// ReservationStore almacén de reservas en Redis: un string JSON por reserva con TTL (PX) y un sorted set
// de reservas PENDING puntuadas por ExpiresAt (ms) que alimenta al reaper.
// Todas las claves comparten el hash tag {prefix} para que el script opere en un único slot.
type ReservationStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewReservationStore construye el adaptador. prefix vacío usa "stockres".
func NewReservationStore(client goredis.UniversalClient, prefix string) *ReservationStore {
	if prefix == "" {
		prefix = "stockres"
	}
	return &ReservationStore{client: client, prefix: prefix}
}

func (s *ReservationStore) key(id string) string {
	return fmt.Sprintf("{%s}:reservation:%s", s.prefix, id)
}

func (s *ReservationStore) indexKey() string {
	return fmt.Sprintf("{%s}:reservation:expiry", s.prefix)
}

func encode(r *entity.Reservation) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reservation %s: %w", r.ID, err)
	}
	return b, nil
}

func decode(raw []byte) (*entity.Reservation, error) {
	var r entity.Reservation
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode reservation: %w", err)
	}
	return &r, nil
}

// expiryScore puntaje del índice: ExpiresAt en milisegundos Unix.
func expiryScore(r *entity.Reservation) float64 {
	return float64(r.ExpiresAt.UnixMilli())
}

// Put guarda la reserva con el TTL indicado y la indexa si está PENDING.
func (s *ReservationStore) Put(ctx context.Context, r *entity.Reservation, ttl time.Duration) error {
	if r == nil || r.ID == "" {
		return domain.ErrInvalidInput
	}
	payload, err := encode(r)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.key(r.ID), payload, positive(ttl))
		if r.Status == entity.ReservationStatusPending {
			pipe.ZAdd(ctx, s.indexKey(), goredis.Z{Score: expiryScore(r), Member: r.ID})
		} else {
			pipe.ZRem(ctx, s.indexKey(), r.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put reservation %s: %w", r.ID, err)
	}
	return nil
}

// Get devuelve domain.ErrNotFound si la clave no existe (incluido TTL vencido).
func (s *ReservationStore) Get(ctx context.Context, id string) (*entity.Reservation, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return decode(raw)
}

// Delete elimina la reserva y su entrada en el índice.
func (s *ReservationStore) Delete(ctx context.Context, id string) (bool, error) {
	var del *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete reservation %s: %w", id, err)
	}
	return del.Val() > 0, nil
}

// Exists indica si la clave sigue viva.
func (s *ReservationStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("exists reservation %s: %w", id, err)
	}
	return n > 0, nil
}

// CompareAndSwap ejecuta casScript: escritura condicionada a la versión, atómica en el servidor.
func (s *ReservationStore) CompareAndSwap(ctx context.Context, expectedVersion int64, next *entity.Reservation, ttl time.Duration) (bool, error) {
	if next == nil || next.ID == "" {
		return false, domain.ErrInvalidInput
	}
	payload, err := encode(next)
	if err != nil {
		return false, err
	}
	indexed := "0"
	if next.Status == entity.ReservationStatusPending {
		indexed = "1"
	}
	res, err := casScript.Run(ctx, s.client,
		[]string{s.key(next.ID), s.indexKey()},
		expectedVersion, payload, positive(ttl).Milliseconds(), indexed, strconv.FormatFloat(expiryScore(next), 'f', 0, 64), next.ID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("cas reservation %s: %w", next.ID, err)
	}
	return res == 1, nil
}

// ListExpired IDs con puntaje < now (ExpiresAt < now) que siguen PENDING. Las entradas del índice
// cuya clave ya venció o cuya reserva dejó de estar PENDING se purgan al pasar.
func (s *ReservationStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load expired reservations: %w", err)
	}

	var expired, stale []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		r, err := decode([]byte(raw))
		if err != nil || r.Status != entity.ReservationStatusPending {
			stale = append(stale, ids[i])
			continue
		}
		expired = append(expired, ids[i])
	}
	if len(stale) > 0 {
		members := make([]any, len(stale))
		for i, id := range stale {
			members[i] = id
		}
		if err := s.client.ZRem(ctx, s.indexKey(), members...).Err(); err != nil {
			return nil, fmt.Errorf("purge expiry index: %w", err)
		}
	}
	return expired, nil
}

func positive(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}
