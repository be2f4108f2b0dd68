package models

// All monetary amounts are integer micro-units of the settlement currency
// (6 decimal places, USDC-style).
const (
	// CreateFee is the $5.00 market creation fee paid to the treasury.
	CreateFee int64 = 5_000_000
	// MinStake is the $0.50 minimum opinion stake.
	MinStake int64 = 500_000
	// MaxStake is the $10.00 maximum opinion stake.
	MaxStake int64 = 10_000_000
	// ProtocolFeeBps is the 10% protocol cut of the prize pool.
	ProtocolFeeBps int64 = 1_000

	MaxStatementLen = 280
	MaxLocatorLen   = 64
)

// Allowed market durations in seconds.
const (
	Duration24H int64 = 86_400
	Duration3D  int64 = 259_200
	Duration7D  int64 = 604_800
	Duration14D int64 = 1_209_600
)

// ValidDuration reports whether d is one of the accepted market durations.
func ValidDuration(d int64) bool {
	switch d {
	case Duration24H, Duration3D, Duration7D, Duration14D:
		return true
	}
	return false
}
