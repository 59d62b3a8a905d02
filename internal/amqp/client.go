// Package amqp carries the remote replicated store over RabbitMQ.
//
// Store operations travel as RPC over a direct queue answered by the
// ledger daemon; whole-collection snapshots are pushed on a topic
// exchange keyed by collection path, which is what makes the store
// push-notifying. The client implements remote.Client.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"cashflow/internal/store/remote"
)

// DefaultCallTimeout bounds every RPC so a lost confirmation surfaces as
// an error instead of an indefinitely pending write.
const DefaultCallTimeout = 10 * time.Second

type Client struct {
	conn         *amqp091.Connection
	rpcChannel   *amqp091.Channel
	exchangeName string
	rpcQueue     string
	replyQueue   string
	callTimeout  time.Duration

	mu      sync.Mutex
	pending map[string]chan *Response
}

func NewClient(url, exchangeName, rpcQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		rpcChannel:   channel,
		exchangeName: exchangeName,
		rpcQueue:     rpcQueue,
		callTimeout:  DefaultCallTimeout,
		pending:      make(map[string]chan *Response),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	if err := declareTopology(c.rpcChannel, c.exchangeName, c.rpcQueue); err != nil {
		return err
	}

	// Exclusive server-named reply queue for RPC responses.
	reply, err := c.rpcChannel.QueueDeclare(
		"",    // name, server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare reply queue: %w", err)
	}
	c.replyQueue = reply.Name

	replies, err := c.rpcChannel.Consume(
		c.replyQueue,
		"",    // consumer tag
		true,  // auto-ack, replies are fire-and-forget
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume reply queue: %w", err)
	}

	go c.dispatchReplies(replies)
	return nil
}

// declareTopology declares the snapshot exchange and the RPC queue. Both
// the client and the daemon call it so either side can start first.
func declareTopology(channel *amqp091.Channel, exchangeName, rpcQueue string) error {
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type, routing key is the collection path
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare snapshot exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		rpcQueue, // name
		true,     // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare rpc queue: %w", err)
	}
	return nil
}

func (c *Client) dispatchReplies(replies <-chan amqp091.Delivery) {
	for delivery := range replies {
		resp, err := ResponseFromJSON(delivery.Body)
		if err != nil {
			slog.Error("Undecodable RPC reply", "error", err)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[delivery.CorrelationId]
		delete(c.pending, delivery.CorrelationId)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) call(ctx context.Context, req *Request) (*Response, error) {
	body, err := req.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	correlationID := uuid.NewString()
	respCh := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[correlationID] = respCh
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	err = c.rpcChannel.PublishWithContext(
		ctx,
		"",         // default exchange
		c.rpcQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			ReplyTo:       c.replyQueue,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
		return nil, fmt.Errorf("publish request: %w", err)
	}

	select {
	case resp := <-respCh:
		if !resp.OK {
			return nil, fmt.Errorf("store rejected %s on %s: %s", req.Op, req.Path, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
		return nil, fmt.Errorf("%s on %s: %w", req.Op, req.Path, ctx.Err())
	}
}

func (c *Client) FetchOnce(ctx context.Context, path string) ([]remote.Record, error) {
	resp, err := c.call(ctx, NewRequest(OpFetch, path, "", nil))
	if err != nil {
		return nil, err
	}
	return toRecords(resp.Records), nil
}

func (c *Client) Write(ctx context.Context, path, key string, data []byte) error {
	_, err := c.call(ctx, NewRequest(OpWrite, path, key, data))
	return err
}

func (c *Client) Delete(ctx context.Context, path, key string) error {
	_, err := c.call(ctx, NewRequest(OpDelete, path, key, nil))
	return err
}

func (c *Client) NewKey(path string) (string, error) {
	resp, err := c.call(context.Background(), NewRequest(OpNewKey, path, "", nil))
	if err != nil {
		return "", err
	}
	return resp.Key, nil
}

type subscription struct {
	path      string
	channel   *amqp091.Channel
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Path() string { return s.path }

// Subscribe binds a fresh exclusive queue to the snapshot exchange for
// the given path. The current snapshot is fetched and delivered first;
// broker pushes follow in emission order on the feed's own channel.
func (c *Client) Subscribe(path string, onSnapshot func([]remote.Record), onError func(error)) (remote.Handle, error) {
	channel, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open feed channel: %w", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // name, server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("declare feed queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, topicKey(path), c.exchangeName, false, nil); err != nil {
		channel.Close()
		return nil, fmt.Errorf("bind feed queue: %w", err)
	}

	deliveries, err := channel.Consume(
		queue.Name,
		"",    // consumer tag
		true,  // auto-ack, a missed snapshot is superseded by the next
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("consume feed queue: %w", err)
	}

	sub := &subscription{path: path, channel: channel, done: make(chan struct{})}
	go c.runFeed(sub, deliveries, onSnapshot, onError)
	return sub, nil
}

func (c *Client) runFeed(sub *subscription, deliveries <-chan amqp091.Delivery, onSnapshot func([]remote.Record), onError func(error)) {
	// Initial snapshot via one-shot read, then broker pushes. A push that
	// raced the fetch only repeats newer state, which wholesale
	// replacement absorbs.
	records, err := c.FetchOnce(context.Background(), sub.path)
	if err != nil {
		if onError != nil && !sub.closed() {
			onError(err)
		}
	} else if !sub.closed() {
		onSnapshot(records)
	}

	for {
		select {
		case <-sub.done:
			return
		case delivery, ok := <-deliveries:
			if !ok {
				if onError != nil && !sub.closed() {
					onError(fmt.Errorf("snapshot feed closed for %s", sub.path))
				}
				return
			}
			snap, err := SnapshotFromJSON(delivery.Body)
			if err != nil {
				slog.Error("Undecodable snapshot", "path", sub.path, "error", err)
				continue
			}
			if snap.Path != sub.path || sub.closed() {
				continue
			}
			onSnapshot(toRecords(snap.Records))
		}
	}
}

func (s *subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Unsubscribe cancels the feed. Safe to call more than once; callbacks
// are suppressed even if the broker still delivers one in flight.
func (c *Client) Unsubscribe(h remote.Handle) {
	sub, ok := h.(*subscription)
	if !ok {
		return
	}
	sub.closeOnce.Do(func() {
		close(sub.done)
		sub.channel.Close()
	})
}

func (c *Client) Close() error {
	if c.rpcChannel != nil {
		c.rpcChannel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func topicKey(path string) string {
	return strings.ReplaceAll(path, "/", ".")
}

func toRecords(payloads []RecordPayload) []remote.Record {
	out := make([]remote.Record, len(payloads))
	for i, p := range payloads {
		out[i] = remote.Record{Key: p.Key, Data: p.Data}
	}
	return out
}
