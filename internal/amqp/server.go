package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cashflow/internal/log"
	"cashflow/internal/store/remote"
)

// Server is the daemon side of the replicated store. It answers RPC
// requests against a backing state and broadcasts a whole-collection
// snapshot after every accepted mutation.
type Server struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	rpcQueue     string
	state        remote.Client
	logger       *log.Logger
}

func NewServer(url, exchangeName, rpcQueue string, state remote.Client, logger *log.Logger) (*Server, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(channel, exchangeName, rpcQueue); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return &Server{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		rpcQueue:     rpcQueue,
		state:        state,
		logger:       logger,
	}, nil
}

// Serve consumes RPC requests until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	deliveries, err := s.channel.Consume(
		s.rpcQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume rpc queue: %w", err)
	}

	s.logger.InfoContext(ctx, "Store daemon listening", "queue", s.rpcQueue, "exchange", s.exchangeName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rpc channel closed")
			}
			s.handle(ctx, delivery)
		}
	}
}

func (s *Server) handle(ctx context.Context, delivery amqp091.Delivery) {
	req, err := RequestFromJSON(delivery.Body)
	if err != nil {
		s.logger.ErrorContext(ctx, "Undecodable request", "error", err)
		delivery.Nack(false, false)
		return
	}

	resp := s.apply(ctx, req)
	if !resp.OK {
		s.logger.WarnContext(ctx, "Request rejected",
			log.FieldOperation, req.Op,
			log.FieldPath, req.Path,
			"error", resp.Error)
	}

	if delivery.ReplyTo != "" {
		if err := s.reply(ctx, delivery, resp); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish reply", "error", err)
		}
	}

	// Mutations fan out as a fresh snapshot of the whole collection.
	if resp.OK && (req.Op == OpWrite || req.Op == OpDelete) {
		if err := s.broadcast(ctx, req.Path); err != nil {
			s.logger.ErrorContext(ctx, "Failed to broadcast snapshot",
				log.FieldPath, req.Path, "error", err)
		}
	}

	delivery.Ack(false)
}

func (s *Server) apply(ctx context.Context, req *Request) *Response {
	switch req.Op {
	case OpFetch:
		records, err := s.state.FetchOnce(ctx, req.Path)
		if err != nil {
			return &Response{Error: err.Error()}
		}
		return &Response{OK: true, Records: toPayloads(records)}
	case OpWrite:
		if err := s.state.Write(ctx, req.Path, req.Key, req.Data); err != nil {
			return &Response{Error: err.Error()}
		}
		return &Response{OK: true, Key: req.Key}
	case OpDelete:
		if err := s.state.Delete(ctx, req.Path, req.Key); err != nil {
			return &Response{Error: err.Error()}
		}
		return &Response{OK: true, Key: req.Key}
	case OpNewKey:
		key, err := s.state.NewKey(req.Path)
		if err != nil {
			return &Response{Error: err.Error()}
		}
		return &Response{OK: true, Key: key}
	default:
		return &Response{Error: fmt.Sprintf("unknown operation %q", req.Op)}
	}
}

func (s *Server) reply(ctx context.Context, delivery amqp091.Delivery, resp *Response) error {
	body, err := resp.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.channel.PublishWithContext(
		ctx,
		"",               // default exchange
		delivery.ReplyTo, // routing key
		false,            // mandatory
		false,            // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: delivery.CorrelationId,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
}

func (s *Server) broadcast(ctx context.Context, path string) error {
	records, err := s.state.FetchOnce(ctx, path)
	if err != nil {
		return fmt.Errorf("read collection: %w", err)
	}

	snap := &Snapshot{Path: path, Records: toPayloads(records), Timestamp: time.Now()}
	body, err := snap.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.channel.PublishWithContext(
		ctx,
		s.exchangeName,
		topicKey(path), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

func (s *Server) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func toPayloads(records []remote.Record) []RecordPayload {
	out := make([]RecordPayload, len(records))
	for i, r := range records {
		out[i] = RecordPayload{Key: r.Key, Data: r.Data}
	}
	return out
}
