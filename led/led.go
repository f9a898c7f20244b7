package led

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

type LED struct {
	Name    string
	lock    *sync.Mutex
	on      bool
	gpioPin gpio.PinIO
}

func NewLED(name string, GPIOPin string) *LED {
	logger.Infof("Creating new LED on pin [%v] called [%v]", GPIOPin, name)
	l := &LED{
		Name: name,
		lock: &sync.Mutex{},
		on:   false,
	}
	l.gpioPin = gpioreg.ByName(GPIOPin)
	if l.gpioPin == nil {
		// a missing indicator LED is not critical
		logger.Errorf("Failed to find %v pin", GPIOPin)
		return l
	}

	// flicker to show it's working
	for i := 0; i < 3; i++ {
		_ = l.gpioPin.Out(gpio.High)
		time.Sleep(time.Millisecond * 100)
		_ = l.gpioPin.Out(gpio.Low)
		time.Sleep(time.Millisecond * 100)
	}
	return l
}

func (l *LED) On() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.on = true
	if l.gpioPin != nil {
		_ = l.gpioPin.Out(gpio.High)
	}
}

func (l *LED) Off() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.on = false
	if l.gpioPin != nil {
		_ = l.gpioPin.Out(gpio.Low)
	}
}

func (l *LED) Flash() {
	if l.gpioPin == nil {
		return
	}
	if !l.lock.TryLock() {
		// we don't want flash requests queuing on the mutex; if a
		// flash is in progress the current request can be discarded
		return
	}
	defer l.lock.Unlock()
	// if the LED is currently off, flash on; otherwise 'off' flash
	if !l.on {
		_ = l.gpioPin.Out(gpio.High)
		time.Sleep(time.Millisecond * 100)
		_ = l.gpioPin.Out(gpio.Low)
	} else {
		_ = l.gpioPin.Out(gpio.Low)
		time.Sleep(time.Millisecond * 100)
		_ = l.gpioPin.Out(gpio.High)
	}
}

func (l *LED) IsOn() bool {
	return l.on
}
