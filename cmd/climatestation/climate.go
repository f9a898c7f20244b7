package main

import (
	"errors"
	"time"

	am2301 "github.com/gr-butler/am2301"
	"github.com/gr-butler/am2301/buffer"
	"github.com/gr-butler/am2301/env"
	logger "github.com/sirupsen/logrus"
)

// StartClimateMonitor polls the sensor and feeds the sample buffers and
// gauges. A failed read is logged and counted, never fatal: the next
// tick simply tries again.
func (w *climatestation) StartClimateMonitor() {
	logger.Info("Starting climate monitor")
	logger.Infof("Waiting %v for sensor warm up", env.WarmupDelay)
	time.Sleep(env.WarmupDelay)

	interval := time.Duration(w.cfg.Station.PollIntervalSec) * time.Second
	for range time.Tick(interval) {
		m, err := w.dev.Measure()
		if err != nil {
			logger.Warnf("No climate data at %v [%v]", time.Now().Format(time.ANSIC), err)
			Prom_sensorReads.WithLabelValues(failureCause(err)).Inc()
			continue
		}
		Prom_sensorReads.WithLabelValues("ok").Inc()

		w.data.GetBuffer("temperature").AddItem(m.Temperature.Float64())
		w.data.GetBuffer("humidity").AddItem(m.Humidity.Float64())
		Prom_temperature.Set(m.Temperature.Float64())
		Prom_humidity.Set(m.Humidity.Float64())
		logger.Debugf("Temp [%v] Hum [%v]", m.Temperature, m.Humidity)
		w.activity.Flash()
	}
}

// failureCause maps a measurement error to its metric label.
func failureCause(err error) string {
	switch {
	case errors.Is(err, am2301.ErrTimeout):
		return "timeout"
	case errors.Is(err, am2301.ErrChecksum):
		return "checksum"
	case errors.Is(err, am2301.ErrInvalidFrame):
		return "invalid_frame"
	}
	return "other"
}

// setupClimateBuffers builds the sample series: one minute of raw polls
// cascading into an hour of minute aggregates, cascading into a day of
// hour aggregates.
func (w *climatestation) setupClimateBuffers() {
	readsPerMinute := 60 / w.cfg.Station.PollIntervalSec
	if readsPerMinute < 1 {
		readsPerMinute = 1
	}

	temperatureBuffer := buffer.NewBuffer(readsPerMinute)
	tempAvgMinuteBuffer := buffer.NewBuffer(60)
	temperatureBuffer.SetAutoAverage(tempAvgMinuteBuffer)
	tempAvgHourBuffer := buffer.NewBuffer(24)
	tempAvgMinuteBuffer.SetAutoAverage(tempAvgHourBuffer)

	tempMinMinuteBuffer := buffer.NewBuffer(60)
	temperatureBuffer.SetAutoMinimum(tempMinMinuteBuffer)
	tempMaxMinuteBuffer := buffer.NewBuffer(60)
	temperatureBuffer.SetAutoMaximum(tempMaxMinuteBuffer)

	w.data.AddBuffer("temperature", temperatureBuffer)
	w.data.AddBuffer("temperatureMinuteAvg", tempAvgMinuteBuffer)
	w.data.AddBuffer("temperatureHourAvg", tempAvgHourBuffer)
	w.data.AddBuffer("temperatureMinuteMin", tempMinMinuteBuffer)
	w.data.AddBuffer("temperatureMinuteMax", tempMaxMinuteBuffer)

	humidityBuffer := buffer.NewBuffer(readsPerMinute)
	humidityAvgMinuteBuffer := buffer.NewBuffer(60)
	humidityBuffer.SetAutoAverage(humidityAvgMinuteBuffer)
	humidityAvgHourBuffer := buffer.NewBuffer(24)
	humidityAvgMinuteBuffer.SetAutoAverage(humidityAvgHourBuffer)

	humidityMinMinuteBuffer := buffer.NewBuffer(60)
	humidityBuffer.SetAutoMinimum(humidityMinMinuteBuffer)
	humidityMaxMinuteBuffer := buffer.NewBuffer(60)
	humidityBuffer.SetAutoMaximum(humidityMaxMinuteBuffer)

	w.data.AddBuffer("humidity", humidityBuffer)
	w.data.AddBuffer("humidityMinuteAvg", humidityAvgMinuteBuffer)
	w.data.AddBuffer("humidityHourAvg", humidityAvgHourBuffer)
	w.data.AddBuffer("humidityMinuteMin", humidityMinMinuteBuffer)
	w.data.AddBuffer("humidityMinuteMax", humidityMaxMinuteBuffer)
}
