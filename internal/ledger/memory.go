package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	addresses addressDoc
	peers     peersDoc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		addresses: make(addressDoc),
		peers:     make(peersDoc),
	}
}

func (s *MemoryStore) SaveAddress(env, network string, role roles.Role, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses.set(env, network, role, addr)
	return nil
}

func (s *MemoryStore) LoadAddress(env, network string, role roles.Role) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.addresses.get(env, network, role)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s on %s %s", ErrAddressNotFound, role, env, network)
	}
	return addr, nil
}

func (s *MemoryStore) Addresses(env string) (map[string]map[roles.Role]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addresses.view(env), nil
}

func (s *MemoryStore) SetPeerFlag(env, from, to string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers.set(env, from, to, connected)
	return nil
}

func (s *MemoryStore) PeerFlag(env, from, to string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	connected, ok := s.peers.get(env, from, to)
	if !ok {
		return false, fmt.Errorf("%w: %s -> %s on %s", ErrPeerNotFound, from, to, env)
	}
	return connected, nil
}

func (s *MemoryStore) Peers(env string) (map[string]map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peers.view(env), nil
}
