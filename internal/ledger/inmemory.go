package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type inMemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	state       State
	metadata    []byte
	balances    map[string]Amount
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and development servers.
func NewInMemory() Store {
	return &inMemoryStore{balances: make(map[string]Amount)}
}

func (s *inMemoryStore) Init(_ context.Context, genesis Genesis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.state = State{Owner: genesis.Owner, TotalSupply: genesis.TotalSupply}
	s.metadata = append([]byte(nil), genesis.Metadata...)
	s.balances[genesis.Owner] = genesis.TotalSupply
	return nil
}

func (s *inMemoryStore) State(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return State{}, ErrNotInitialized
	}
	return s.state, nil
}

func (s *inMemoryStore) Metadata(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return append([]byte(nil), s.metadata...), nil
}

func (s *inMemoryStore) Balance(_ context.Context, account string) (Amount, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[account]
	return balance, ok, nil
}

func (s *inMemoryStore) Register(_ context.Context, account string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[account]; exists {
		return false, nil
	}
	s.balances[account] = Amount{}
	return true, nil
}

func (s *inMemoryStore) Unregister(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[account]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredAccount, account)
	}
	if !balance.IsZero() {
		return fmt.Errorf("%w: %s", ErrNonZeroBalance, account)
	}
	delete(s.balances, account)
	return nil
}

func (s *inMemoryStore) Commit(_ context.Context, changes Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if changes.Supply != nil {
		if !s.initialized {
			return ErrNotInitialized
		}
		if !s.state.TotalSupply.Equal(changes.Supply.Previous) {
			return ErrConcurrentModification
		}
	}
	for _, c := range changes.Balances {
		current, ok := s.balances[c.Account]
		if !ok || !current.Equal(c.Previous) {
			return fmt.Errorf("%w: %s", ErrConcurrentModification, c.Account)
		}
	}

	for _, c := range changes.Balances {
		s.balances[c.Account] = c.Next
	}
	if changes.Supply != nil {
		s.state.TotalSupply = changes.Supply.Next
	}
	return nil
}

func (s *inMemoryStore) Accounts(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.balances))
	for account, balance := range s.balances {
		entries = append(entries, Entry{Account: account, Balance: balance})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Account < entries[j].Account })
	return entries, nil
}
