package mqtt

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	opTimeout      = 5 * time.Second
	keepAlive      = 60 * time.Second

	// disconnectQuiesce is in milliseconds, as paho expects.
	disconnectQuiesce = 1000

	maxQoS = 2
)

func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return scheme + "://" + net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// newOptions builds a clean, auto-reconnecting session whose will marks
// the master offline on the status topic.
func newOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	will := statusPayload(cfg.Broker.ClientID, statusOffline, reasonLost)

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay)*time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay)*time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetWill(Topics{}.SystemStatus(), string(will), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// wait blocks until the broker acknowledges t or the timeout passes.
func wait(t pahomqtt.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("no acknowledgement after %v", timeout)
	}
	return t.Error()
}
