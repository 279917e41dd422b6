package amqp

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mattw23n/emergency-dispatch-app/pkg/config"
)

// Config holds broker connection and exchange settings.
type Config struct {
	Host         string
	Port         int
	User         string
	Password     string
	VHost        string
	Exchange     string
	ExchangeType string

	// ConnectRetryInterval is the delay between connection attempts.
	ConnectRetryInterval time.Duration
	// ConnectTimeout bounds the total time spent retrying the initial
	// connection before the error is surfaced to the caller.
	ConnectTimeout time.Duration
	// Prefetch bounds unacked deliveries per consumer channel.
	Prefetch int
}

// ConfigFromEnv reads broker settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		Host:                 config.GetEnv("RABBITMQ_HOST", "localhost"),
		Port:                 config.GetEnvInt("RABBITMQ_PORT", 5672),
		User:                 config.GetEnv("RABBITMQ_USER", "guest"),
		Password:             config.GetEnv("RABBITMQ_PASSWORD", "guest"),
		VHost:                config.GetEnv("RABBITMQ_VHOST", "/"),
		Exchange:             config.GetEnv("AMQP_EXCHANGE_NAME", "amqp.topic"),
		ExchangeType:         config.GetEnv("AMQP_EXCHANGE_TYPE", "topic"),
		ConnectRetryInterval: config.GetEnvDuration("AMQP_CONNECT_RETRY_INTERVAL", 2*time.Second),
		ConnectTimeout:       config.GetEnvDuration("AMQP_CONNECT_TIMEOUT", 60*time.Second),
		Prefetch:             config.GetEnvInt("AMQP_PREFETCH", 16),
	}
}

func (c Config) withDefaults() Config {
	if c.ConnectRetryInterval <= 0 {
		c.ConnectRetryInterval = 2 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 60 * time.Second
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 16
	}
	if c.Exchange == "" {
		c.Exchange = "amqp.topic"
	}
	if c.ExchangeType == "" {
		c.ExchangeType = "topic"
	}
	return c
}

// URI renders the amqp:// connection string.
func (c Config) URI() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.PathEscape(vhost),
	)
}

// Queue declares one durable queue and its routing-key bindings.
type Queue struct {
	Name string
	// SingleActiveConsumer preserves delivery order when a queue may have
	// competing consumers.
	SingleActiveConsumer bool
	Bindings             []string
}

// Topology is the set of queues a component declares on connect. The
// exchange itself is declared unconditionally.
type Topology struct {
	Queues []Queue
}
