package tasks

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orderly-network/order-token-ops/internal/deploy"
	"github.com/orderly-network/order-token-ops/internal/messaging"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/peering"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

// Table layouts for the table output format. JSON and YAML render the underlying values.
type (
	predictionView []deploy.Prediction
	ownerView      []deploy.OwnerChange
	deliveryView   []messaging.Delivery
	libraryView    peering.LibraryResult

	addressRow struct {
		Network string         `json:"network" yaml:"network"`
		Role    roles.Role     `json:"role" yaml:"role"`
		Address common.Address `json:"address" yaml:"address"`
	}
	addressView []addressRow

	peerRow struct {
		From      string `json:"from" yaml:"from"`
		To        string `json:"to" yaml:"to"`
		Connected bool   `json:"connected" yaml:"connected"`
	}
	peerView []peerRow
)

func (v predictionView) TableHeader() []string {
	return []string{"Role", "Address", "Implementation", "Salt"}
}

func (v predictionView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, p := range v {
		rows = append(rows, []string{p.Role.String(), p.Address.Hex(), optionalAddress(p.Implementation), p.Salt.Hex()})
	}
	return rows
}

func (v ownerView) TableHeader() []string {
	return []string{"Role", "Address", "Current Owner", "Target Owner", "Applied"}
}

func (v ownerView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, c := range v {
		rows = append(rows, []string{c.Role.String(), c.Address.Hex(), c.Current.Hex(), c.Target.Hex(), strconv.FormatBool(c.Applied)})
	}
	return rows
}

func (v deliveryView) TableHeader() []string {
	return []string{"Guid", "To", "Index", "Gas Limit", "Result"}
}

func (v deliveryView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, d := range v {
		result := d.Skipped
		if result == "" {
			result = d.TxHash.Hex()
		}
		rows = append(rows, []string{d.Guid, d.To, strconv.Itoa(int(d.Index)), strconv.FormatUint(d.GasLimit, 10), result})
	}
	return rows
}

func (v libraryView) TableHeader() []string {
	return []string{"Network", "Eid", "Side", "Current Library", "Desired Library", "Switch", "Config Drift"}
}

func (v libraryView) TableRows() [][]string {
	rows := make([][]string, 0, 2*len(v.Drifts))
	for _, d := range v.Drifts {
		for _, side := range []struct {
			name string
			side peering.LibrarySide
		}{{"send", d.Send}, {"receive", d.Receive}} {
			rows = append(rows, []string{
				d.Network,
				strconv.FormatUint(uint64(d.EndpointID), 10),
				side.name,
				side.side.CurrentLibrary.Hex(),
				side.side.DesiredLibrary.Hex(),
				strconv.FormatBool(side.side.SwitchLibrary),
				policyDrift(side.side),
			})
		}
	}
	return rows
}

func policyDrift(side peering.LibrarySide) string {
	if !side.PolicyDrifted {
		return "-"
	}
	return describePolicy(side.CurrentPolicy) + " -> " + describePolicy(side.DesiredPolicy)
}

func describePolicy(p network.VerificationPolicy) string {
	dvns := make([]string, 0, len(p.RequiredDVNs))
	for _, dvn := range p.RequiredDVNs {
		dvns = append(dvns, dvn.Hex()[:10])
	}
	return "confirmations=" + strconv.FormatUint(p.Confirmations, 10) + " required=[" + strings.Join(dvns, ",") + "]"
}

func newAddressView(addresses map[string]map[roles.Role]common.Address) addressView {
	view := addressView{}
	for net, byRole := range addresses {
		for role, addr := range byRole {
			view = append(view, addressRow{Network: net, Role: role, Address: addr})
		}
	}
	slices.SortFunc(view, func(a, b addressRow) int {
		if c := strings.Compare(a.Network, b.Network); c != 0 {
			return c
		}
		return strings.Compare(a.Role.String(), b.Role.String())
	})
	return view
}

func (v addressView) TableHeader() []string {
	return []string{"Network", "Role", "Address"}
}

func (v addressView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{r.Network, r.Role.String(), r.Address.Hex()})
	}
	return rows
}

func newPeerView(peers map[string]map[string]bool) peerView {
	view := peerView{}
	for from, byTo := range peers {
		for to, connected := range byTo {
			view = append(view, peerRow{From: from, To: to, Connected: connected})
		}
	}
	slices.SortFunc(view, func(a, b peerRow) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return view
}

func (v peerView) TableHeader() []string {
	return []string{"From", "To", "Connected"}
}

func (v peerView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{r.From, r.To, strconv.FormatBool(r.Connected)})
	}
	return rows
}

func optionalAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return "-"
	}
	return addr.Hex()
}
