package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"time"

	am2301 "github.com/gr-butler/am2301"
	"github.com/gr-butler/am2301/config"
	"github.com/gr-butler/am2301/data"
	"github.com/gr-butler/am2301/db"
	"github.com/gr-butler/am2301/env"
	"github.com/gr-butler/am2301/led"
	"github.com/gr-butler/am2301/publish"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const version = "GRB-Climate-1.0.0"

type climatestation struct {
	dev      *am2301.Dev
	data     *data.ClimateData
	cfg      *config.Config
	store    *db.Store
	pub      *publish.Publisher
	activity *led.LED
	testMode bool
}

type webdata struct {
	TimeNow     string  `json:"time"`
	Temp        float64 `json:"temperature_C"`
	Humidity    float64 `json:"humidity_RH"`
	TempMinAvg  float64 `json:"temperature_C_minute_avg"`
	HumidMinAvg float64 `json:"humidity_RH_minute_avg"`
}

var Prom_humidity = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "relative_humidity",
		Help: "Relative Humidity",
	},
)

var Prom_temperature = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "temperature",
		Help: "Temperature C",
	},
)

var Prom_sensorReads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sensor_reads_total",
		Help: "AM2301 read attempts by result",
	},
	[]string{"result"},
)

// called by prometheus
func init() {
	logger.Infof("%v: Initialize prometheus...", time.Now().Format(time.RFC822))
	prometheus.MustRegister(
		Prom_humidity,
		Prom_temperature,
		Prom_sensorReads)
}

func main() {
	logger.Infof("Starting climate station [%v]", version)

	testMode := flag.Bool("test", false, "test mode, does not report externally")
	verbose := flag.Bool("verbose", false, "debug logging")
	configPath := flag.String("config", "", "station config file (yaml)")
	flag.Parse()

	if *testMode {
		logger.Info("TEST MODE")
	}
	if *verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("Bad configuration!! [%v]", err)
		logger.Exit(1)
	}

	if _, err := host.Init(); err != nil {
		logger.Errorf("Failed to init gpio host [%v]", err)
		logger.Exit(1)
	}

	pin := gpioreg.ByName(cfg.Station.Pin)
	if pin == nil {
		logger.Errorf("Failed to find %v - sensor pin", cfg.Station.Pin)
		logger.Exit(1)
	}
	logger.Infof("%s: %s", pin, pin.Function())

	w := climatestation{}
	w.testMode = *testMode
	w.cfg = cfg
	w.dev = am2301.New(pin)
	w.data = data.CreateClimateData()
	// buffers must exist before the web handler or reporter can run
	w.setupClimateBuffers()
	w.activity = led.NewLED("Activity", env.ActivityLed)

	if cfg.Postgres.Enabled && !*testMode {
		w.store, err = db.Open(cfg.Postgres.DSN)
		if err != nil {
			logger.Errorf("Failed to open db [%v]", err)
			logger.Exit(1)
		}
		defer w.store.Close()
	}

	if cfg.MQTT.Enabled && !*testMode {
		w.pub, err = publish.NewPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			// the broker may simply not be up yet; readings still work
			logger.Errorf("Failed to connect MQTT [%v]", err)
		} else {
			defer w.pub.Close()
		}
	}

	// start go routines
	go w.StartClimateMonitor()
	go w.Reporting()

	// start web service
	http.HandleFunc("/", w.handler)
	http.Handle("/metrics", promhttp.Handler())
	logger.Infof("Starting webservice on [%v]...", cfg.Station.ListenAddr)
	logger.Fatal(http.ListenAndServe(cfg.Station.ListenAddr, nil))
}

func (w *climatestation) handler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	tAvg, _, _, _ := w.data.GetBuffer("temperature").GetAverageMinMaxSum()
	hAvg, _, _, _ := w.data.GetBuffer("humidity").GetAverageMinMaxSum()
	wd := webdata{
		TimeNow:     time.Now().Format(time.RFC822),
		Temp:        w.data.GetBuffer("temperature").GetLast(),
		Humidity:    w.data.GetBuffer("humidity").GetLast(),
		TempMinAvg:  float64(tAvg),
		HumidMinAvg: float64(hAvg),
	}

	js, err := json.Marshal(wd)
	if err != nil {
		logger.Errorf("JSON error [%v]", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Debugf("Web read: [%v]", string(js))
	_, _ = rw.Write(js) // not much we can do if this fails
}
