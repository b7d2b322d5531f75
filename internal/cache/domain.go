package cache

import "time"

// Domain names one logical category of cached backend data.
type Domain string

const (
	Projects       Domain = "projects"
	Portfolio      Domain = "portfolio"
	UserBalance    Domain = "userBalance"
	SimulationData Domain = "simulationData"
)

// lastSync is the reserved key recording the last successful fetch.
const lastSync = "lastSync"

// DefaultKeyPrefix namespaces every stored key.
const DefaultKeyPrefix = "youthInvest_"

// Domains returns every cached domain in a stable order.
func Domains() []Domain {
	return []Domain{Projects, Portfolio, UserBalance, SimulationData}
}

// MutationDomains are the domains whose backend truth changes when an
// investment is recorded.
func MutationDomains() []Domain {
	return []Domain{Projects, Portfolio, UserBalance}
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	for _, known := range Domains() {
		if d == known {
			return true
		}
	}
	return false
}

// Policy maps each domain to its time-to-live.
type Policy map[Domain]time.Duration

// DefaultPolicy returns the standard TTL table.
func DefaultPolicy() Policy {
	return Policy{
		Projects:       5 * time.Minute,
		Portfolio:      5 * time.Minute,
		UserBalance:    60 * time.Second,
		SimulationData: 10 * time.Minute,
	}
}

// withDefaults returns a copy of p with missing or non-positive entries
// taken from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	out := DefaultPolicy()
	for d, ttl := range p {
		if ttl > 0 {
			out[d] = ttl
		}
	}
	return out
}
