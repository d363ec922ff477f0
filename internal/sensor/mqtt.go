package sensor

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/access-logger/internal/access"
	"github.com/sweeney/access-logger/internal/mqtt"
)

// RemoteReading is the JSON payload published by a sensor node.
type RemoteReading struct {
	SensorID  string    `json:"sensorId,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	TempC     *float64  `json:"temperatureC"`
	Humidity  *float64  `json:"humidityPct"`
}

// MQTTSampler holds the most recent reading received on a topic.
type MQTTSampler struct {
	client paho.Client
	topic  string

	mu     sync.Mutex
	latest access.Reading
	fresh  bool
}

// NewMQTTSampler connects to broker and subscribes to topic.
func NewMQTTSampler(broker, clientID, topic string) (*MQTTSampler, error) {
	s := &MQTTSampler{topic: topic}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			// Subscriptions are not kept across reconnects with a clean session.
			token := c.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
				s.handle(m.Payload())
			})
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Printf("sensor: subscribe %s: %v", topic, token.Error())
			}
		})

	s.client = paho.NewClient(opts)
	if err := mqtt.Connect(s.client, mqtt.ConnectTimeout); err != nil {
		return nil, err
	}
	return s, nil
}

// handle decodes one payload and stores it as the latest reading.
func (s *MQTTSampler) handle(payload []byte) {
	var rr RemoteReading
	if err := json.Unmarshal(payload, &rr); err != nil {
		log.Printf("sensor: bad payload on %s: %v", s.topic, err)
		return
	}
	if rr.TempC == nil || rr.Humidity == nil {
		log.Printf("sensor: payload on %s missing temperature or humidity", s.topic)
		return
	}
	s.mu.Lock()
	s.latest = access.Reading{Temperature: *rr.TempC, Humidity: *rr.Humidity}
	s.fresh = true
	s.mu.Unlock()
}

// Sample returns the latest reading if one arrived since the last call.
func (s *MQTTSampler) Sample() (access.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return access.Reading{}, false
	}
	s.fresh = false
	return s.latest, true
}

// Close disconnects from the broker.
func (s *MQTTSampler) Close() error {
	if s.client != nil {
		s.client.Disconnect(1000)
	}
	return nil
}
