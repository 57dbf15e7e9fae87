package pricing

import (
	"time"

	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
)

const (
	decayGrace = time.Hour
	decayDay   = 24 * time.Hour
	decayWeek  = 7 * decayDay

	decayAfterDay  ecomath.Permille = 950
	decayAfterWeek ecomath.Permille = 900
)

// TimeDecay returns the price factor applied to a project that has not
// traded for elapsed: 100% for the first hour, then falling linearly to 95%
// at one day and to 90% at one week, where it stays.
func TimeDecay(elapsed time.Duration) ecomath.Permille {
	switch {
	case elapsed < decayGrace:
		return ecomath.OnePermille
	case elapsed < decayDay:
		drop := uint64(elapsed) * uint64(ecomath.OnePermille-decayAfterDay) / uint64(decayDay)
		return ecomath.OnePermille - ecomath.Permille(drop)
	case elapsed < decayWeek:
		drop := uint64(elapsed-decayDay) * uint64(decayAfterDay-decayAfterWeek) / uint64(decayWeek-decayDay)
		return decayAfterDay - ecomath.Permille(drop)
	default:
		return decayAfterWeek
	}
}
