package main

import (
	"sort"
	"strings"
)

// ProviderCapability records which privileged RPC methods a known vendor
// exposes, plus guidance surfaced to users when a method is unavailable.
type ProviderCapability struct {
	SupportsStatus  bool   `json:"supports_status"`
	SupportsContent bool   `json:"supports_content"`
	SupportsInspect bool   `json:"supports_inspect"`
	SupportsTrace   bool   `json:"supports_trace"`
	Guidance        string `json:"guidance"`
}

// Static capability table; consumed as configuration, never re-derived.
var providerCapabilities = map[string]ProviderCapability{
	"gcp": {
		SupportsStatus:  true,
		SupportsContent: true,
		SupportsInspect: true,
		SupportsTrace:   true,
		Guidance:        "Full txpool and trace support, privileged analysis path available",
	},
	"geth-local": {
		SupportsStatus:  true,
		SupportsContent: true,
		SupportsInspect: true,
		SupportsTrace:   true,
		Guidance:        "Local geth node, all txpool and debug methods available",
	},
	"quicknode": {
		SupportsStatus:  true,
		SupportsContent: true,
		SupportsInspect: true,
		SupportsTrace:   false,
		Guidance:        "txpool methods available, trace enrichment is skipped",
	},
	"alchemy": {
		SupportsStatus:  false,
		SupportsContent: false,
		SupportsInspect: false,
		SupportsTrace:   true,
		Guidance:        "txpool_* is not exposed, analysis scans recent blocks instead",
	},
	"infura": {
		SupportsStatus:  false,
		SupportsContent: false,
		SupportsInspect: false,
		SupportsTrace:   false,
		Guidance:        "txpool_* and debug_* are not exposed, analysis scans recent blocks with static decoding only",
	},
	"public": {
		SupportsStatus:  false,
		SupportsContent: false,
		SupportsInspect: false,
		SupportsTrace:   false,
		Guidance:        "Public endpoints rarely expose privileged methods and rate-limit aggressively, expect fallback behavior",
	},
}

// LookupProvider returns the capability entry for a provider name,
// case-insensitively.
func LookupProvider(name string) (ProviderCapability, bool) {
	cap, ok := providerCapabilities[strings.ToLower(strings.TrimSpace(name))]
	return cap, ok
}

// ProviderNames lists the known providers in stable order.
func ProviderNames() []string {
	names := make([]string, 0, len(providerCapabilities))
	for name := range providerCapabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
