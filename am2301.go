// Package am2301 reads AM2301 (DHT21) humidity/temperature sensors
// over their single-wire protocol, bit-banged on a GPIO pin.
//
// The sensor answers a 1ms low trigger pulse with a 40-bit frame where
// each bit is encoded in the width of a high pulse. Measure runs one
// acquisition with every edge wait bounded at 100us and decodes the
// frame into percent relative humidity and degrees Celsius.
//
// The sensor needs 2 seconds after power up before the first read and
// should not be polled more often than about once every 5 seconds.
// The pin is exclusively owned for the duration of a read; concurrent
// reads on the same pin are not supported.
package am2301

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Dev is a handle to a single AM2301 on a bidirectional GPIO line.
type Dev struct {
	pin gpio.PinIO
	clk timebase

	// pinMu serializes acquisitions: the wire handshake is strictly
	// time ordered and the pin is exclusively owned during a read.
	pinMu sync.Mutex

	// mu guards the SenseContinuous lifecycle, separate from pinMu so
	// Halt never deadlocks against an in-flight read.
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a handle to the sensor wired to pin. The pin must be a
// bidirectional line with an external or internal pull-up; the sensor
// holds it high when idle.
func New(pin gpio.PinIO) *Dev {
	return &Dev{pin: pin, clk: hostClock{}}
}

// Measure runs a single timeout-bounded acquisition and decode.
//
// Failures match exactly one of ErrTimeout, ErrChecksum or
// ErrInvalidFrame under errors.Is. The call blocks for the duration of
// the wire exchange (a few milliseconds) and at most a bounded time on
// a silent sensor; it never blocks indefinitely.
func (d *Dev) Measure() (Measurement, error) {
	return d.measure(edgeTimeout)
}

// MeasureNoTimeout runs the acquisition with unbounded edge waits.
//
// Deprecated: a silent or disconnected sensor blocks this call forever.
// Kept for callers of the original polling loop; use Measure instead.
func (d *Dev) MeasureNoTimeout() (Measurement, error) {
	return d.measure(0)
}

func (d *Dev) measure(timeout time.Duration) (Measurement, error) {
	d.pinMu.Lock()
	defer d.pinMu.Unlock()
	f, err := d.readFrame(timeout)
	if err != nil {
		return Measurement{}, err
	}
	return decode(f)
}

// Sense implements physic.SenseEnv. Pressure is left untouched, the
// AM2301 does not measure it.
func (d *Dev) Sense(e *physic.Env) error {
	m, err := d.Measure()
	if err != nil {
		return err
	}
	e.Temperature = physic.Temperature(m.Temperature.Float64()*float64(physic.Kelvin)) + physic.ZeroCelsius
	e.Humidity = physic.RelativeHumidity(m.Humidity.Float64() * float64(physic.PercentRH))
	return nil
}

// SenseContinuous implements physic.SenseEnv. Readings that fail are
// skipped; the channel only ever carries successful measurements. Call
// Halt to stop. Intervals below the sensor's 2 second refresh period
// are raised to it.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	const minInterval = 2 * time.Second
	if interval < minInterval {
		interval = minInterval
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
	}
	d.stop = make(chan struct{})
	d.wg.Add(1)

	sensing := make(chan physic.Env)
	stop := d.stop
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				var e physic.Env
				if err := d.Sense(&e); err == nil {
					select {
					case sensing <- e:
					case <-stop:
						return
					}
				}
			}
		}
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv. The sensor reports in 0.1 degC
// and 0.1 %RH steps.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 100 * physic.MilliKelvin
	e.Humidity = physic.PercentRH / 10
}

// Halt stops a SenseContinuous reader if one is running.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.wg.Wait()
	d.stop = nil
	return nil
}

func (d *Dev) String() string {
	return "AM2301{" + d.pin.Name() + "}"
}

var _ physic.SenseEnv = &Dev{}
