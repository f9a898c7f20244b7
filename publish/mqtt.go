package publish

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	logger "github.com/sirupsen/logrus"
)

const connectTimeout = 10 * time.Second

// Sample is the JSON payload published per report.
type Sample struct {
	Time         string  `json:"time"`
	TemperatureC float64 `json:"temperature_c"`
	HumidityRH   float64 `json:"humidity_rh"`
}

type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(broker, clientID, topic string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("publish: timed out connecting to [%v]", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("publish: connect to [%v]: %w", broker, err)
	}
	logger.Infof("Connected to MQTT broker [%v]", broker)
	return &Publisher{client: client, topic: topic}, nil
}

// Publish sends one sample, retained, QoS 0. A lost sample is cheaper
// than a blocked reporting loop.
func (p *Publisher) Publish(s Sample) error {
	js, err := json.Marshal(s)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 0, true, js)
	token.Wait()
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
