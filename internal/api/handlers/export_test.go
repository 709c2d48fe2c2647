package handlers

import "time"

// SetClock replaces the clock the click rate limiter reads
func (h *ClickHandler) SetClock(now func() time.Time) {
	h.now = now
}
