package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ConnectTimeout bounds the initial broker connection.
const ConnectTimeout = 10 * time.Second

// Connect starts the client's connection and waits up to timeout for it.
// With connect retry enabled a failed attempt keeps retrying in the
// background, so the client is disconnected before an error is returned.
func Connect(client paho.Client, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("connection timeout after %s", timeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}
