// Package memstore is an in-process implementation of the repositories used
// by unit tests and dry-run ingestion. Transactions work on a copy of the
// whole state and swap it in on commit.
package memstore

import (
	"context"
	"sync"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

type txKey struct{}

type state struct {
	seq map[string]int64

	companies     map[int64]models.Company
	companyByName map[string]int64

	individuals      map[int64]models.Individual
	individualByName map[string]int64

	directors    []models.DirectorRelationship
	shareholders []models.ShareholderRelationship
	changes      []models.ChangeRecord
	sessions     map[int64]models.Session
	failedItems  []models.FailedItem
}

func newState() *state {
	return &state{
		seq:              map[string]int64{},
		companies:        map[int64]models.Company{},
		companyByName:    map[string]int64{},
		individuals:      map[int64]models.Individual{},
		individualByName: map[string]int64{},
		sessions:         map[int64]models.Session{},
	}
}

func (s *state) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.companyByName {
		c.companyByName[k] = v
	}
	for k, v := range s.individuals {
		c.individuals[k] = v
	}
	for k, v := range s.individualByName {
		c.individualByName[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	c.directors = append(c.directors, s.directors...)
	c.shareholders = append(c.shareholders, s.shareholders...)
	c.changes = append(c.changes, s.changes...)
	c.failedItems = append(c.failedItems, s.failedItems...)
	return c
}

// Store holds every table in memory.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *state

	failMu sync.Mutex
	fail   map[string]error
}

func New() *Store {
	return &Store{
		state: newState(),
		fail:  map[string]error{},
	}
}

// WithTx runs fn against a private copy of the state that replaces the
// shared state only when fn returns nil. Readers outside the transaction
// never observe its partial writes. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

// read returns the state visible to ctx: the transaction's working copy
// inside WithTx, the shared state otherwise.
func (s *Store) read(ctx context.Context) (*state, func()) {
	s.mu.RLock()
	if work, ok := ctx.Value(txKey{}).(*state); ok {
		return work, s.mu.RUnlock
	}
	return s.state, s.mu.RUnlock
}

// write returns the state ctx may mutate. Writes outside a transaction wait
// for any running one so its commit cannot overwrite them.
func (s *Store) write(ctx context.Context) (*state, func()) {
	if work, ok := ctx.Value(txKey{}).(*state); ok {
		s.mu.Lock()
		return work, s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return s.state, func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// FailOn makes the named operation return err until cleared with a nil err.
// Operation names are "<table>.<Method>", for example "shareholders.Insert".
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.fail[op]
}

func (s *Store) Companies() *CompanyStore {
	return &CompanyStore{s: s}
}

func (s *Store) Individuals() *IndividualStore {
	return &IndividualStore{s: s}
}

func (s *Store) Relationships() *RelationshipStore {
	return &RelationshipStore{s: s}
}

func (s *Store) Changes() *ChangeStore {
	return &ChangeStore{s: s}
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{s: s}
}
