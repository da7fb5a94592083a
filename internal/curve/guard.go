// internal/curve/guard.go
package curve

// CheckBuy is the anti-bot guard: a stateless decision over the curve
// snapshot, the trader's activity record, the clock and the requested
// lamport amount. It runs before any state mutation and only on buys;
// sells are intentionally not rate-limited.
//
// Each rejection surfaces its own error:
//   - cooldown between consecutive transactions (boundary inclusive:
//     exactly cooldown seconds after the last trade passes),
//   - purchase size cap during the launch protection window,
//   - price-impact cap on the simulated buy.
func CheckBuy(s *State, activity *UserActivity, now int64, solAmount uint64) error {
	g := s.Guard

	if activity != nil && activity.LastTransactionTime > 0 && g.TransactionCooldown > 0 {
		if now-activity.LastTransactionTime < g.TransactionCooldown {
			return ErrCooldownActive
		}
	}

	if g.LaunchProtectionPeriod > 0 && now-g.CreationTimestamp < g.LaunchProtectionPeriod {
		if solAmount > g.MaxBuyDuringProtection {
			return ErrLaunchBuyLimit
		}
	}

	impact, err := PriceImpactBps(s, solAmount)
	if err != nil {
		return err
	}
	if impact > g.MaxPriceImpactBps {
		return ErrPriceImpactTooHigh
	}

	return nil
}
