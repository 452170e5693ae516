package roles

type CanonicalChecker interface {
	IsCanonicalTokenNetwork(network string) bool
}

// Resolver picks the contract variant that applies on a network.
type Resolver struct {
	networks CanonicalChecker
}

func NewResolver(networks CanonicalChecker) *Resolver {
	return &Resolver{networks: networks}
}

// TokenContractRole is the ERC20 holding balances on a network: the canonical token where it is minted,
// the bridged OFT everywhere else.
func (r *Resolver) TokenContractRole(network string) Role {
	if r.networks.IsCanonicalTokenNetwork(network) {
		return OrderToken
	}
	return OrderOFT
}

// TransferContractRole is the messaging application moving tokens off a network.
func (r *Resolver) TransferContractRole(network string) Role {
	if r.networks.IsCanonicalTokenNetwork(network) {
		return OrderAdapter
	}
	return OrderOFT
}

// Deployable reports whether role belongs on network. The canonical token and its adapter exist only on the
// canonical network and the OFT only elsewhere.
func (r *Resolver) Deployable(role Role, network string) bool {
	canonical := r.networks.IsCanonicalTokenNetwork(network)
	switch role {
	case OrderToken, OrderAdapter:
		return canonical
	case OrderOFT:
		return !canonical
	default:
		return true
	}
}
