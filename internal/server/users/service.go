package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/google/uuid"
)

// Service is the user directory. Reads are served from memory; every
// mutation rebuilds the indexes and writes a full snapshot through the
// Repository before returning.
//
// If a save fails the in-memory change is kept and the error is returned, so
// memory is ahead of disk until the next successful save.
type Service struct {
	repo   Repository
	logger logging.Logger

	// writeMu serializes mutate+save so snapshots reach disk in order.
	writeMu sync.Mutex

	mu      sync.RWMutex
	store   *Store
	loadErr error
}

// NewService loads the directory from repo. A failed load is logged and
// leaves the directory empty; it is reported by LoadErr.
func NewService(ctx context.Context, repo Repository, logger logging.Logger) *Service {
	s := &Service{
		repo:   repo,
		logger: logger.With("module", "users"),
		store:  NewStore(),
	}
	_ = s.Reload(ctx)
	return s
}

// Reload replaces the in-memory directory with the stored snapshot.
func (s *Service) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	records, err := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.loadErr = err
	if err != nil {
		s.logger.Error(ctx, "failed to load users", "error", err)
		return err
	}

	for _, r := range records {
		s.store.Put(r)
	}
	s.store.RebuildIndexes()

	s.logger.Info(ctx, "users loaded", "count", s.store.Len())
	return nil
}

// LoadErr returns the error of the last load, nil if it succeeded.
func (s *Service) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *Service) List() []UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.All()
}

func (s *Service) GetByID(id string) (UserRecord, bool) {
	return s.get(func(st *Store) (UserRecord, bool) { return st.ByID(id) })
}

func (s *Service) GetByEmail(email string) (UserRecord, bool) {
	return s.get(func(st *Store) (UserRecord, bool) { return st.ByEmail(email) })
}

func (s *Service) GetByAuthToken(token string) (UserRecord, bool) {
	return s.get(func(st *Store) (UserRecord, bool) { return st.ByAuthToken(token) })
}

func (s *Service) GetByAuthJwtToken(token string) (UserRecord, bool) {
	return s.get(func(st *Store) (UserRecord, bool) { return st.ByAuthJwtToken(token) })
}

func (s *Service) GetByPasswordResetToken(token string) (UserRecord, bool) {
	return s.get(func(st *Store) (UserRecord, bool) { return st.ByPasswordResetToken(token) })
}

func (s *Service) GetByPasswordResetJwtToken(token string) (UserRecord, bool) {
	return s.get(func(st *Store) (UserRecord, bool) { return st.ByPasswordResetJwtToken(token) })
}

func (s *Service) get(fn func(*Store) (UserRecord, bool)) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.store)
}

// Create stores a new record, assigning a random id when r has none.
func (s *Service) Create(ctx context.Context, r UserRecord) (UserRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r = r.Clone()

	err := s.mutate(ctx, func(st *Store) (bool, error) {
		if _, ok := st.ByID(r.ID); ok {
			return false, fmt.Errorf("%w: user %s", common.ErrorAlreadyExists, r.ID)
		}
		st.Put(r)
		return true, nil
	})
	if err != nil {
		return UserRecord{}, err
	}
	return r, nil
}

// Update replaces the record with r.ID as a whole.
func (s *Service) Update(ctx context.Context, r UserRecord) (UserRecord, error) {
	if r.ID == "" {
		return UserRecord{}, fmt.Errorf("%w: empty id", common.ErrorValidation)
	}
	r = r.Clone()

	err := s.mutate(ctx, func(st *Store) (bool, error) {
		if _, ok := st.ByID(r.ID); !ok {
			return false, fmt.Errorf("%w: user %s", common.ErrorNotFound, r.ID)
		}
		st.Put(r)
		return true, nil
	})
	if err != nil {
		return UserRecord{}, err
	}
	return r, nil
}

// Delete removes the record with r.ID. The Delete* methods report whether a
// record was removed; removing an absent key is not an error and does not
// touch the disk.
func (s *Service) Delete(ctx context.Context, r UserRecord) (bool, error) {
	return s.DeleteByID(ctx, r.ID)
}

func (s *Service) DeleteByID(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, func(st *Store) bool { return st.RemoveByID(id) })
}

func (s *Service) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	return s.remove(ctx, func(st *Store) bool { return st.RemoveByEmail(email) })
}

func (s *Service) DeleteByAuthToken(ctx context.Context, token string) (bool, error) {
	return s.remove(ctx, func(st *Store) bool { return st.RemoveByAuthToken(token) })
}

func (s *Service) DeleteByAuthJwtToken(ctx context.Context, token string) (bool, error) {
	return s.remove(ctx, func(st *Store) bool { return st.RemoveByAuthJwtToken(token) })
}

// Reset drops the stored database and empties the directory.
func (s *Service) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.repo.Drop()

	s.mu.Lock()
	s.store.Clear()
	s.loadErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error(ctx, "failed to drop users database", "error", err)
		return err
	}
	s.logger.Warn(ctx, "users database dropped")
	return nil
}

func (s *Service) remove(ctx context.Context, fn func(*Store) bool) (bool, error) {
	var removed bool
	err := s.mutate(ctx, func(st *Store) (bool, error) {
		removed = fn(st)
		return removed, nil
	})
	return removed, err
}

// mutate applies fn to the store and, if fn reports a change, rebuilds the
// indexes and saves a snapshot. fn must not change the store when it fails.
func (s *Service) mutate(ctx context.Context, fn func(*Store) (bool, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	changed, err := fn(s.store)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.store.RebuildIndexes()
	snapshot := s.store.All()
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error(ctx, "failed to save users", "error", err)
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
