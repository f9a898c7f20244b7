package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/gr-butler/am2301/db"
	"github.com/gr-butler/am2301/env"
	"github.com/gr-butler/am2301/publish"

	logger "github.com/sirupsen/logrus"
)

/*

https://wow.metoffice.gov.uk/support/dataformats

WOW expects an HTTP request to
http://wow.metoffice.gov.uk/automaticreading? followed by key/value
pairs. Mandatory: siteid, siteAuthenticationKey, dateutc (format
YYYY-mm-DD HH:mm:ss, UTC), softwaretype; plus at least one piece of
weather data. This station supplies:

	humidity	Outdoor Humidity	0-100 %
	tempf		Outdoor Temperature	Fahrenheit
	dewptf		Outdoor Dewpoint	Fahrenheit

*/

const baseUrl = "http://wow.metoffice.gov.uk/automaticreading?"

type climateReport struct {
	SiteId       string  `url:"siteid,omitempty"`
	AuthKey      string  `url:"siteAuthenticationKey,omitempty"`
	DateString   string  `url:"dateutc,omitempty"`
	SoftwareType string  `url:"softwaretype,omitempty"`
	TempC        float64 `url:"-"`
	Humidity     float64 `url:"humidity,omitempty"`
	TempF        float64 `url:"tempf,omitempty"`
	DewPointF    float64 `url:"dewptf,omitempty"`
}

// Reporting runs as a go routine:
// * every minute prepare a report from the minute buffers
// * every env.ReportFreqMin minutes write the db record, publish the
//   MQTT sample and upload to the Met Office
func (w *climatestation) Reporting() {
	for t := range time.Tick(time.Minute) {
		report := w.prepReport()
		logger.Debugf("Report: [%+v]", report)

		if w.testMode || t.Minute()%env.ReportFreqMin != 0 {
			continue
		}
		w.send(t, report)
	}
}

// prepReport averages the last minute of readings into one report.
func (w *climatestation) prepReport() *climateReport {
	r := climateReport{}

	// go magic date is Mon Jan 2 15:04:05 MST 2006
	// "The date must be in the following format: YYYY-mm-DD HH:mm:ss"
	r.DateString = time.Now().UTC().Format("2006-01-02+15:04:05")
	r.SoftwareType = version

	tAvg, _, _, _ := w.data.GetBuffer("temperature").GetAverageMinMaxSum()
	hAvg, _, _, _ := w.data.GetBuffer("humidity").GetAverageMinMaxSum()

	r.TempC = float64(tAvg)
	r.TempF = ctof(float64(tAvg))
	r.Humidity = float64(hAvg)
	r.DewPointF = dewPointF(float64(tAvg), float64(hAvg))
	return &r
}

func (w *climatestation) send(t time.Time, r *climateReport) {
	if w.store != nil {
		logger.Info("Saving record to db")
		err := w.store.WriteRecord(context.Background(), db.WriteRecordParams{
			TakenAt:     t,
			Temperature: r.TempC,
			Humidity:    r.Humidity,
		})
		if err != nil {
			logger.Errorf("Failed to write to db [%v]", err)
		}
	}

	if w.pub != nil {
		err := w.pub.Publish(publish.Sample{
			Time:         t.UTC().Format(time.RFC3339),
			TemperatureC: r.TempC,
			HumidityRH:   r.Humidity,
		})
		if err != nil {
			logger.Errorf("Failed to publish sample [%v]", err)
		}
	}

	if w.cfg.Wow.Enabled {
		w.sendToWow(r)
	}
}

func (w *climatestation) sendToWow(r *climateReport) {
	wowsiteid, idok := os.LookupEnv("WOWSITEID")
	wowpin, pinok := os.LookupEnv("WOWPIN")
	if !(idok && pinok) {
		logger.Error("SiteId and or pin not set! WOWSITEID and WOWPIN must be set.")
		return
	}
	r.SiteId = wowsiteid
	r.AuthKey = wowpin

	vals, _ := query.Values(r)
	logger.Info("Sending data to met office")

	// Metoffice accepts a GET... which is easier so wtf
	client := http.Client{Timeout: time.Second * 30}
	resp, err := client.Get(baseUrl + vals.Encode())
	if err != nil {
		logger.Errorf("Failed to send data [%v]", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		logger.Errorf("Failed to send data HTTP [%v]", resp.Status)
	}
}

func ctof(c float64) float64 {
	//(0°C × 9/5) + 32 = 32°F
	return c*env.CToF + 32
}

// dewPointF approximates the dew point from temperature and relative
// humidity, returned in Fahrenheit for the WOW upload.
func dewPointF(tempC, humidity float64) float64 {
	//Td = T - ((100 - RH)/5.)
	return ctof(tempC - ((100 - humidity) / 5.0))
}
