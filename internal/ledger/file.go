package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"
	"github.com/orderly-network/order-token-ops/internal/infra/filesystem"
	fsjson "github.com/orderly-network/order-token-ops/internal/infra/filesystem/json"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

// FileStore keeps the address book and peer cache in two JSON documents. Each mutation is a full
// read-modify-write; with locking enabled it holds an advisory lock on <file>.lock for the duration.
type FileStore struct {
	addressPath string
	peersPath   string
	lock        bool
	reader      filesystem.Reader
	writer      filesystem.Writer
	logger      *slog.Logger
}

func NewFileStore(addressPath, peersPath string, lock bool) *FileStore {
	return &FileStore{
		addressPath: addressPath,
		peersPath:   peersPath,
		lock:        lock,
		reader:      fsjson.NewReader(),
		writer:      fsjson.NewWriter(),
		logger:      logger.Named("ledger"),
	}
}

func (s *FileStore) SaveAddress(env, network string, role roles.Role, addr common.Address) error {
	return s.withLock(s.addressPath, func() error {
		doc := make(addressDoc)
		if err := s.read(s.addressPath, &doc); err != nil {
			return err
		}
		if doc == nil {
			doc = make(addressDoc)
		}
		doc.set(env, network, role, addr)
		if err := s.writer.WriteJSON(s.addressPath, doc); err != nil {
			return fmt.Errorf("failed to save %s address: %w", role, err)
		}

		s.logger.
			With("env", env).
			With("network", network).
			With("role", role).
			With("address", addr.Hex()).
			Info("address saved")

		return nil
	})
}

func (s *FileStore) LoadAddress(env, network string, role roles.Role) (common.Address, error) {
	doc := make(addressDoc)
	if err := s.read(s.addressPath, &doc); err != nil {
		return common.Address{}, err
	}
	addr, ok := doc.get(env, network, role)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s on %s %s", ErrAddressNotFound, role, env, network)
	}
	return addr, nil
}

func (s *FileStore) Addresses(env string) (map[string]map[roles.Role]common.Address, error) {
	doc := make(addressDoc)
	if err := s.read(s.addressPath, &doc); err != nil {
		return nil, err
	}
	return doc.view(env), nil
}

func (s *FileStore) SetPeerFlag(env, from, to string, connected bool) error {
	return s.withLock(s.peersPath, func() error {
		doc := make(peersDoc)
		if err := s.read(s.peersPath, &doc); err != nil {
			return err
		}
		if doc == nil {
			doc = make(peersDoc)
		}
		doc.set(env, from, to, connected)
		if err := s.writer.WriteJSON(s.peersPath, doc); err != nil {
			return fmt.Errorf("failed to save peer %s -> %s: %w", from, to, err)
		}
		return nil
	})
}

func (s *FileStore) PeerFlag(env, from, to string) (bool, error) {
	doc := make(peersDoc)
	if err := s.read(s.peersPath, &doc); err != nil {
		return false, err
	}
	connected, ok := doc.get(env, from, to)
	if !ok {
		return false, fmt.Errorf("%w: %s -> %s on %s", ErrPeerNotFound, from, to, env)
	}
	return connected, nil
}

func (s *FileStore) Peers(env string) (map[string]map[string]bool, error) {
	doc := make(peersDoc)
	if err := s.read(s.peersPath, &doc); err != nil {
		return nil, err
	}
	return doc.view(env), nil
}

// read loads a document, treating a missing file as empty.
func (s *FileStore) read(path string, target any) error {
	err := s.reader.ReadJSON(path, target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) withLock(path string, fn func() error) error {
	if !s.lock {
		return fn()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			s.logger.With("err", err.Error()).With("path", path).Warn("failed to release ledger lock")
		}
	}()

	return fn()
}
