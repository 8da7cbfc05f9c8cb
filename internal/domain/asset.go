package domain

// Asset identifies one of the deli exchange's tradable symbols.
// The set is fixed at process start; the venue runs one matching
// engine per asset.
type Asset uint8

const (
	Dressing Asset = iota
	Rye
	Swiss
	Pastrami
)

// NumAssets is the size of the asset universe.
const NumAssets = 4

// ReubenBonus is the bonus value awarded per complete sandwich,
// i.e. per unit of the smallest holding across all assets.
const ReubenBonus int64 = 100

// Assets returns every tradable asset in wire order.
func Assets() [NumAssets]Asset {
	return [NumAssets]Asset{Dressing, Rye, Swiss, Pastrami}
}

// Valid reports whether a is a member of the asset universe.
func (a Asset) Valid() bool {
	return a < NumAssets
}

// Value returns the asset's face value used for portfolio valuation.
func (a Asset) Value() int64 {
	switch a {
	case Dressing:
		return 10
	case Rye:
		return 20
	case Swiss:
		return 30
	case Pastrami:
		return 40
	default:
		return 0
	}
}

// String returns the lowercase symbol name used in venue URLs.
func (a Asset) String() string {
	switch a {
	case Dressing:
		return "dressing"
	case Rye:
		return "rye"
	case Swiss:
		return "swiss"
	case Pastrami:
		return "pastrami"
	default:
		return "unknown"
	}
}

// Proper returns the display name.
func (a Asset) Proper() string {
	switch a {
	case Dressing:
		return "Dressing"
	case Rye:
		return "Rye"
	case Swiss:
		return "Swiss"
	case Pastrami:
		return "Pastrami"
	default:
		return "Unknown"
	}
}

// Abbrev returns the short ticker shown in book headers.
func (a Asset) Abbrev() string {
	switch a {
	case Dressing:
		return "DRS"
	case Rye:
		return "RYE"
	case Swiss:
		return "SWS"
	case Pastrami:
		return "PAS"
	default:
		return "???"
	}
}
