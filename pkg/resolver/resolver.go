package resolver

import (
	"net"
	"strings"
	"sync"

	"github.com/openchami/redfish-relay/pkg/log"
)

// Resolver memoizes name-service lookups for the process lifetime.
//
// On lookup it invokes the system name-service; if multiple names are
// returned, it prefers the first whose first character is 'x' (site
// convention for node names); otherwise it returns the first non-address
// field. On any failure it returns the input unchanged rather than
// propagating an error: a resolver failure must never stop the caller's
// real work.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]string
}

// New returns a Resolver with an empty cache.
func New() *Resolver {
	return &Resolver{cache: make(map[string]string)}
}

// Resolve returns the preferred canonical name for host, which may be a
// hostname or an IP literal. Safe for concurrent callers; on a cache miss,
// duplicate concurrent lookups for the same key are possible and tolerated
// rather than serialized behind a lock (first writer wins).
func (r *Resolver) Resolve(host string) string {
	r.mu.RLock()
	if name, ok := r.cache[host]; ok {
		r.mu.RUnlock()
		return name
	}
	r.mu.RUnlock()

	name := lookup(host)

	r.mu.Lock()
	if existing, ok := r.cache[host]; ok {
		r.mu.Unlock()
		return existing
	}
	r.cache[host] = name
	r.mu.Unlock()

	return name
}

func lookup(host string) string {
	if ip := net.ParseIP(host); ip != nil {
		names, err := net.LookupAddr(host)
		if err != nil || len(names) == 0 {
			log.WithComponent("resolver").Debug().Str("host", host).Err(err).Msg("reverse lookup failed, using input")
			return host
		}
		return pickPreferred(names, host)
	}

	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		log.WithComponent("resolver").Debug().Str("host", host).Err(err).Msg("forward lookup failed, using input")
		return host
	}

	names, err := net.LookupAddr(addrs[0])
	if err != nil || len(names) == 0 {
		return host
	}
	return pickPreferred(names, host)
}

// pickPreferred applies the site naming convention: prefer a returned name
// beginning with 'x', else the first non-address field, else fall back to
// the original input.
func pickPreferred(names []string, fallback string) string {
	for _, n := range names {
		trimmed := strings.TrimSuffix(n, ".")
		if strings.HasPrefix(trimmed, "x") {
			return trimmed
		}
	}
	for _, n := range names {
		trimmed := strings.TrimSuffix(n, ".")
		if net.ParseIP(trimmed) == nil {
			return trimmed
		}
	}
	return fallback
}
