package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// MemoryReservationStore keeps reservations in a map.  Used when
// STORE_DRIVER=memory and in tests; contents are lost on restart.
type MemoryReservationStore struct {
	mu     sync.Mutex
	rows   map[uint64]model.Reservation
	lastID uint64
}

func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{rows: make(map[uint64]model.Reservation)}
}

func (s *MemoryReservationStore) Load(ctx context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryReservationStore) Save(ctx context.Context, reservations []model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reservations {
		s.rows[r.ID] = r
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	return nil
}

func (s *MemoryReservationStore) Remove(ctx context.Context, ids []uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

// LastIssuedID returns the largest id ever saved; Remove does not lower it.
func (s *MemoryReservationStore) LastIssuedID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID, nil
}

// MemoryUserRepo is the in-memory counterpart of UserRepo.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	nextID  uint64
	byID    map[uint64]model.User
	byEmail map[string]uint64
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		nextID:  1,
		byID:    make(map[uint64]model.User),
		byEmail: make(map[string]uint64),
	}
}

func (r *MemoryUserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return 0, ErrEmailExists
	}
	now := time.Now().UTC()
	u.ID = r.nextID
	u.Email = email
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = now, now
	r.nextID++
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return u.ID, nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

// MemoryTokenRepo is the in-memory counterpart of TokenRepo.
type MemoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
	now    func() time.Time
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{tokens: make(map[string]model.RefreshToken), now: time.Now}
}

func (r *MemoryTokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenHash] = model.RefreshToken{
		ID:        uint64(len(r.tokens) + 1),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC(),
		CreatedAt: r.now().UTC(),
	}
	return nil
}

func (r *MemoryTokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || r.now().UTC().After(t.ExpiresAt) {
		return 0, ErrTokenInvalid
	}
	return t.UserID, nil
}

func (r *MemoryTokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := r.now().UTC()
		t.RevokedAt = &now
		r.tokens[tokenHash] = t
	}
	return nil
}

func (r *MemoryTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	for h, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.tokens[h] = t
		}
	}
	return nil
}
