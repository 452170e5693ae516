package roles

import (
	"errors"
	"fmt"
)

// Role names a deployable contract. The string form is the key used in the address ledger and artifacts file.
type Role string

const (
	OrderToken       Role = "OrderToken"
	OrderAdapter     Role = "OrderAdapter"
	OrderOFT         Role = "OrderOFT"
	OrderSafe        Role = "OrderSafe"
	OrderBox         Role = "OrderBox"
	OrderSafeRelayer Role = "OrderSafeRelayer"
	OrderBoxRelayer  Role = "OrderBoxRelayer"
)

type SaltFamily string

const (
	SaltFamilyOrder   SaltFamily = "order"
	SaltFamilySafe    SaltFamily = "safe"
	SaltFamilyBox     SaltFamily = "box"
	SaltFamilyRelayer SaltFamily = "relayer"
)

var ErrUnknownRole = errors.New("unknown contract role")

// All lists every role in deployment order.
var All = []Role{
	OrderToken,
	OrderAdapter,
	OrderOFT,
	OrderSafe,
	OrderBox,
	OrderSafeRelayer,
	OrderBoxRelayer,
}

func Parse(name string) (Role, error) {
	for _, r := range All {
		if string(r) == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: '%s'", ErrUnknownRole, name)
}

func (r Role) String() string {
	return string(r)
}

// Proxied reports whether the role is deployed behind an upgradeable ERC1967 proxy.
func (r Role) Proxied() bool {
	return r != OrderToken
}

// IsOApp reports whether the role is a messaging application with peers and a delegate.
func (r Role) IsOApp() bool {
	return r == OrderAdapter || r == OrderOFT
}

func (r Role) IsRelayer() bool {
	return r == OrderSafeRelayer || r == OrderBoxRelayer
}

func (r Role) IsVault() bool {
	return r == OrderSafe || r == OrderBox
}

func (r Role) SaltFamily() SaltFamily {
	switch r {
	case OrderSafe:
		return SaltFamilySafe
	case OrderBox:
		return SaltFamilyBox
	case OrderSafeRelayer, OrderBoxRelayer:
		return SaltFamilyRelayer
	default:
		return SaltFamilyOrder
	}
}
