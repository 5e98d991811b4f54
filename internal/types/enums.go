package types

type Subtree string

const (
	SubtreeLegacyPackages Subtree = "legacyPackages"
	SubtreePackages       Subtree = "packages"
	SubtreeCatalog        Subtree = "catalog"
)

// DefaultSubtrees is the search order used when neither the descriptor
// nor the input restricts the subtree.
var DefaultSubtrees = []Subtree{SubtreeLegacyPackages, SubtreePackages, SubtreeCatalog}

func (s Subtree) Valid() bool {
	switch s {
	case SubtreeLegacyPackages, SubtreePackages, SubtreeCatalog:
		return true
	default:
		return false
	}
}
