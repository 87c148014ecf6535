package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ride-coordinator/internal/general/config"
	"ride-coordinator/internal/general/logger"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

var ErrNotConnected = errors.New("rabbitmq: not connected")

// Client owns one AMQP connection plus a confirm-mode publishing channel and
// redials in the background whenever either of them closes.
type Client struct {
	url    string
	log    *logger.Logger
	logCtx context.Context

	mu       sync.RWMutex
	conn     *amqp.Connection
	pub      *amqp.Channel
	confirms chan amqp.Confirmation

	// pubMu keeps publish/confirm pairs in order on the shared channel.
	pubMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	lost      chan struct{}
	done      chan struct{}
}

// URL builds the AMQP URL for the rabbitmq config section.
func URL(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "amqp",
		Host:   net.JoinHostPort(cfg.RabbitMQ.Host, strconv.Itoa(cfg.RabbitMQ.Port)),
		User:   url.UserPassword(cfg.RabbitMQ.User, cfg.RabbitMQ.Password),
		Path:   "/",
	}
	return u.String()
}

// Connect dials the broker once, declares the topology and starts the
// reconnect watcher. Later failures are retried with capped backoff.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	client := &Client{
		url:    URL(cfg),
		log:    log,
		logCtx: context.WithoutCancel(ctx),
		closed: make(chan struct{}),
		lost:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if err := client.dial(); err != nil {
		return nil, err
	}
	go client.watch()
	return client, nil
}

// Close stops the watcher and closes the channel and connection.
func (client *Client) Close() {
	client.closeOnce.Do(func() {
		close(client.closed)
		<-client.done

		client.mu.Lock()
		defer client.mu.Unlock()
		if client.pub != nil {
			_ = client.pub.Close()
			client.pub = nil
		}
		if client.conn != nil {
			_ = client.conn.Close()
			client.conn = nil
		}
	})
}

func (client *Client) dial() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		client.log.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq open channel: %w", err)
	}
	if err = declareTopology(ch); err != nil {
		client.log.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare RabbitMQ topology", err, nil)
		return fmt.Errorf("rabbitmq topology: %w", err)
	}
	if err = ch.Confirm(false); err != nil {
		return fmt.Errorf("rabbitmq enable confirms: %w", err)
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go client.logReturns(returns)

	client.mu.Lock()
	client.conn, client.pub, client.confirms = conn, ch, confirms
	client.mu.Unlock()

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		select {
		case <-client.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}
		select {
		case client.lost <- struct{}{}:
		default:
		}
	}()

	client.log.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", nil)
	return nil
}

// logReturns reports unroutable mandatory publishes until the channel closes.
func (client *Client) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		client.log.Error(client.logCtx, "rabbitmq_returned", "Message was returned as unroutable",
			fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
			map[string]any{"exchange": r.Exchange, "routing_key": r.RoutingKey, "size": len(r.Body)})
	}
}

func (client *Client) watch() {
	defer close(client.done)
	for {
		select {
		case <-client.closed:
			return
		case <-client.lost:
		}

		backoff := minBackoff
		for {
			err := client.dial()
			if err == nil {
				client.log.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ", nil)
				break
			}
			client.log.Error(client.logCtx, "rabbitmq_reconnect_failed", "Failed to reconnect to RabbitMQ", err,
				map[string]any{"backoff_ms": backoff.Milliseconds()})

			select {
			case <-client.closed:
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
