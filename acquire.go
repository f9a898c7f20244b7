package am2301

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	// triggerHold is how long the host holds the line low to request a
	// measurement.
	triggerHold = time.Millisecond

	// bitThreshold separates a 0 pulse (~26-28us high) from a 1 pulse
	// (~70us high). Exactly 50us still reads as 0.
	bitThreshold = 50 * time.Microsecond

	// edgeTimeout bounds every single edge wait on the timeout path.
	edgeTimeout = 100 * time.Microsecond

	// pollPace is the delay inserted between polls while waiting for a
	// falling edge. Rising edge waits poll flat out: pacing them was
	// found to produce spurious timeouts against real sensors, so only
	// the falling waits are paced. Asymmetric on purpose.
	pollPace = time.Microsecond
)

// timebase is the microsecond-granularity clock the wire protocol
// needs. The host implementation busy-spins; tests substitute a
// scripted clock so edge timings are deterministic.
type timebase interface {
	Now() time.Time
	Since(start time.Time) time.Duration
	BusyWait(d time.Duration)
}

type hostClock struct{}

func (hostClock) Now() time.Time {
	return time.Now()
}

func (hostClock) Since(start time.Time) time.Duration {
	return time.Since(start)
}

// BusyWait spins rather than sleeping: time.Sleep granularity on Linux
// is far coarser than the sub-100us pulses this protocol carries.
func (hostClock) BusyWait(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

// trigger runs the host start condition: line high, then held low for
// 1ms, then high again, then released to the sensor by switching the
// pin to input. The line idles high on its pull-up.
func (d *Dev) trigger() error {
	if err := d.pin.Out(gpio.High); err != nil {
		return err
	}
	if err := d.pin.Out(gpio.Low); err != nil {
		return err
	}
	d.clk.BusyWait(triggerHold)
	if err := d.pin.Out(gpio.High); err != nil {
		return err
	}
	return d.pin.In(gpio.PullUp, gpio.NoEdge)
}

// waitForLevel busy-polls the pin until it reads level and reports how
// long that took. A timeout of 0 polls forever. pace inserts pollPace
// between polls (see the pollPace comment for why only falling waits
// use it).
func (d *Dev) waitForLevel(level gpio.Level, timeout time.Duration, pace bool) (time.Duration, error) {
	start := d.clk.Now()
	for d.pin.Read() != level {
		if timeout > 0 && d.clk.Since(start) > timeout {
			return 0, ErrTimeout
		}
		if pace {
			d.clk.BusyWait(pollPace)
		}
	}
	return d.clk.Since(start), nil
}

func (d *Dev) waitRising(timeout time.Duration) (time.Duration, error) {
	return d.waitForLevel(gpio.High, timeout, false)
}

func (d *Dev) waitFalling(timeout time.Duration) (time.Duration, error) {
	return d.waitForLevel(gpio.Low, timeout, true)
}

// skipPreamble consumes the sensor's response header: a falling edge,
// a rising edge and a second falling edge before the first data pulse.
// Unlike the data bits these edges carry no payload, but they are still
// bounded on the timeout path so an absent sensor cannot hang the read
// on its idle-high line.
func (d *Dev) skipPreamble(timeout time.Duration) error {
	if _, err := d.waitFalling(timeout); err != nil {
		return err
	}
	if _, err := d.waitRising(timeout); err != nil {
		return err
	}
	_, err := d.waitFalling(timeout)
	return err
}

// classifyBit maps a measured high-pulse width to a data bit. Strictly
// greater than the threshold reads as 1.
func classifyBit(width time.Duration) byte {
	if width > bitThreshold {
		return 1
	}
	return 0
}

// readFrame performs one full acquisition: trigger, preamble, then 40
// data pulses classified by width. A timeout of 0 removes every bound
// (legacy behaviour). On timeout no partial frame is returned.
func (d *Dev) readFrame(timeout time.Duration) (Frame, error) {
	var f Frame

	if err := d.trigger(); err != nil {
		return f, err
	}
	if err := d.skipPreamble(timeout); err != nil {
		return f, err
	}

	for i := range f {
		if _, err := d.waitRising(timeout); err != nil {
			return f, err
		}
		width, err := d.waitFalling(timeout)
		if err != nil {
			return f, err
		}
		f[i] = classifyBit(width)
	}
	return f, nil
}
