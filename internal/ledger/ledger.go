package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

var (
	ErrAddressNotFound = errors.New("address not found")
	ErrPeerNotFound    = errors.New("peer not found")
)

type (
	// AddressBook persists deployed addresses keyed by env, network and role.
	AddressBook interface {
		SaveAddress(env, network string, role roles.Role, addr common.Address) error
		LoadAddress(env, network string, role roles.Role) (common.Address, error)
		Addresses(env string) (map[string]map[roles.Role]common.Address, error)
	}

	// PeerCache is an advisory record of peer links set by this tool. On-chain state stays authoritative.
	PeerCache interface {
		SetPeerFlag(env, from, to string, connected bool) error
		PeerFlag(env, from, to string) (bool, error)
		Peers(env string) (map[string]map[string]bool, error)
	}

	Store interface {
		AddressBook
		PeerCache
	}

	addressDoc map[string]map[string]map[string]string
	peersDoc   map[string]map[string]map[string]bool
)

func (d addressDoc) set(env, network string, role roles.Role, addr common.Address) {
	if d[env] == nil {
		d[env] = make(map[string]map[string]string)
	}
	if d[env][network] == nil {
		d[env][network] = make(map[string]string)
	}
	d[env][network][string(role)] = addr.Hex()
}

func (d addressDoc) get(env, network string, role roles.Role) (common.Address, bool) {
	raw, ok := d[env][network][string(role)]
	if !ok || !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (d addressDoc) view(env string) map[string]map[roles.Role]common.Address {
	out := make(map[string]map[roles.Role]common.Address)
	for network, byRole := range d[env] {
		out[network] = make(map[roles.Role]common.Address)
		for role, raw := range byRole {
			if common.IsHexAddress(raw) {
				out[network][roles.Role(role)] = common.HexToAddress(raw)
			}
		}
	}
	return out
}

func (d peersDoc) set(env, from, to string, connected bool) {
	if d[env] == nil {
		d[env] = make(map[string]map[string]bool)
	}
	if d[env][from] == nil {
		d[env][from] = make(map[string]bool)
	}
	d[env][from][to] = connected
}

func (d peersDoc) get(env, from, to string) (bool, bool) {
	connected, ok := d[env][from][to]
	return connected, ok
}

func (d peersDoc) view(env string) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for from, byTo := range d[env] {
		out[from] = make(map[string]bool)
		for to, connected := range byTo {
			out[from][to] = connected
		}
	}
	return out
}
