package domain

import "fmt"

// Tier is the subscription level governing quotas and feature access.
type Tier string

const (
	TierFree Tier = "free"
	Tier1    Tier = "tier1"
	Tier2    Tier = "tier2"
)

var tierRank = map[Tier]int{
	TierFree: 0,
	Tier1:    1,
	Tier2:    2,
}

// ParseTier validates a tier value coming from a token claim or request body.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierRank[t]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// AtLeast reports whether t grants at least the access level of min.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}
