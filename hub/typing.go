package hub

import (
	"sync"
	"time"

	log "bookingserver/cloudlog"
	"bookingserver/clock"
)

// typingIdle is how long the typing flag stays up after the last keystroke.
const typingIdle = 2000 * time.Millisecond

// typist debounces one user's typing flag. The flag is written when it goes up and when it comes
// down; keystrokes in between only move the deadline.
//
// mu guards the wanted state and the timer. writeMu serialises store writes, and each write
// sends whatever is wanted at the moment it starts, so a slow write can never land after a
// newer one.
type typist struct {
	mu     sync.Mutex
	clk    clock.Clock
	timer  *clock.Timer
	gen    uint64
	active bool

	writeMu sync.Mutex
	write   func(typing bool) error
	stored  bool
}

func newTypist(clk clock.Clock, write func(bool) error) *typist {
	return &typist{clk: clk, write: write}
}

// keystroke raises the flag and restarts the idle timer.
func (t *typist) keystroke() error {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.timer.Stop()
	t.timer = t.clk.AfterFunc(typingIdle, func() { t.expire(gen) })
	t.active = true
	t.mu.Unlock()

	return t.sync()
}

// expire runs when the idle timer of generation gen fires.
func (t *typist) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	t.mu.Unlock()

	if err := t.sync(); err != nil {
		log.Printf("clearing idle typing flag: %v", err)
	}
}

// sync writes the wanted flag if the store does not hold it yet. A failed write leaves stored
// untouched so the next keystroke or expiry tries again.
func (t *typist) sync() error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	want := t.active
	t.mu.Unlock()
	if want == t.stored {
		return nil
	}
	if err := t.write(want); err != nil {
		return err
	}
	t.stored = want
	return nil
}

// clear drops the flag now and cancels any pending timer. The write happens even when the flag
// is believed to be down, since another tab of the same user may have raised it.
func (t *typist) clear() error {
	t.mu.Lock()
	t.gen++
	t.timer.Stop()
	t.timer = nil
	t.active = false
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.write(false); err != nil {
		return err
	}
	t.stored = false
	return nil
}
