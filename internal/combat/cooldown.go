package combat

import "time"

// ReadyCooldown reports whether an action last triggered at last may fire
// again at now. A zero last means the action never fired.
func ReadyCooldown(last time.Time, cooldown time.Duration, now time.Time) bool {
	if last.IsZero() || cooldown <= 0 {
		return true
	}
	return now.Sub(last) >= cooldown
}

// Cooldown tracks the last successful trigger of one action.
type Cooldown struct {
	Interval time.Duration
	last     time.Time
}

// Ready reports whether the action may fire at now.
func (c *Cooldown) Ready(now time.Time) bool {
	return ReadyCooldown(c.last, c.Interval, now)
}

// Trigger records a successful firing.
func (c *Cooldown) Trigger(now time.Time) {
	c.last = now
}

// Last returns the time of the last successful firing.
func (c *Cooldown) Last() time.Time {
	return c.last
}
