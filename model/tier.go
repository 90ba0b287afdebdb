package model

import "fmt"

// TierRank is a staff tier in the fixed hierarchy. Higher values outrank
// lower ones.
type TierRank int

const (
	TierNone TierRank = iota
	TierTrial
	TierSupport
	TierHead
)

func (t TierRank) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierTrial:
		return "trial"
	case TierSupport:
		return "support"
	case TierHead:
		return "head"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier converts a tier name, as used in config files, back to its rank.
func ParseTier(name string) (TierRank, error) {
	switch name {
	case "none":
		return TierNone, nil
	case "trial":
		return TierTrial, nil
	case "support":
		return TierSupport, nil
	case "head":
		return TierHead, nil
	}
	return TierNone, fmt.Errorf("unknown tier name %q", name)
}

// DemotionTarget returns the tier one step below t and whether that demotion
// is terminal. A terminal demotion drops the user out of staff entirely and
// has no automatic reinstatement path.
func (t TierRank) DemotionTarget() (TierRank, bool) {
	if t <= TierTrial {
		return TierNone, true
	}
	return t - 1, false
}

// PromotionTarget returns the tier one step above t, or false if t is
// already the top tier or not a staff tier at all.
func (t TierRank) PromotionTarget() (TierRank, bool) {
	if t < TierTrial || t >= TierHead {
		return TierNone, false
	}
	return t + 1, true
}

// CompareTiers orders two tiers: -1 if a ranks below b, 0 if equal, 1 if a
// ranks above b.
func CompareTiers(a, b TierRank) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
