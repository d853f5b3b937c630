package dispatch

import "time"

// EffectiveTimeout computes the query timeout as min(driverTimeout,
// brokerTimeout), reporting which side bound it for the handler to log
// (spec §4.7 "Timeouts": "the handler records the origin (from app,
// from broker, no limit) in the log"). A zero or negative duration
// means "no limit" for that side.
func EffectiveTimeout(driverTimeout, brokerTimeout time.Duration) (timeout time.Duration, origin string) {
	switch {
	case driverTimeout <= 0 && brokerTimeout <= 0:
		return 0, "no limit"
	case driverTimeout <= 0:
		return brokerTimeout, "from broker"
	case brokerTimeout <= 0:
		return driverTimeout, "from app"
	case driverTimeout <= brokerTimeout:
		return driverTimeout, "from app"
	default:
		return brokerTimeout, "from broker"
	}
}
