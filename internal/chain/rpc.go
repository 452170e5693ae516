package chain

import (
	"fmt"
	"strings"
)

// EnvLookup matches os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// RPCEnvVar is the per-network override variable, e.g. SEPOLIA_RPC_URL.
func RPCEnvVar(network string) string {
	return strings.ToUpper(network) + "_RPC_URL"
}

// ResolveRPC picks the endpoint for a network: configured override, then <NETWORK>_RPC_URL, then the registry default.
func ResolveRPC(network string, overrides map[string]string, lookup EnvLookup, fallback string) (string, error) {
	if url := strings.TrimSpace(overrides[network]); url != "" {
		return url, nil
	}
	if lookup != nil {
		if url, ok := lookup(RPCEnvVar(network)); ok && strings.TrimSpace(url) != "" {
			return strings.TrimSpace(url), nil
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no RPC URL for %s: set rpc.%s or %s", network, network, RPCEnvVar(network))
}
