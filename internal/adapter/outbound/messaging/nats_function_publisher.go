package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"luascan/internal/application/common/logging"
	"luascan/internal/application/common/slogger"
	"luascan/internal/application/dto"
	"luascan/internal/config"
	"luascan/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding luascan events.
	StreamName = "LUASCAN"
	// StreamSubjects is the subject filter of StreamName.
	StreamSubjects = "luascan.>"
	// FunctionsIndexedSubject receives one message per indexed file.
	FunctionsIndexedSubject = "luascan.functions.indexed"

	natsConnectionTimeout = 5 * time.Second
	streamMaxAge          = 7 * 24 * time.Hour

	circuitMaxFailures  = 3
	circuitOpenDuration = 30 * time.Second
)

// ErrNotConnected is returned when publishing before Connect.
var ErrNotConnected = errors.New("not connected to NATS server")

// ErrCircuitOpen is returned while the circuit breaker rejects publishes.
var ErrCircuitOpen = errors.New("circuit breaker open: too many recent failures")

// FunctionsIndexedMessage announces that the functions of a file were indexed.
type FunctionsIndexedMessage struct {
	MessageID             string    `json:"message_id"`
	ScanID                uuid.UUID `json:"scan_id"`
	FilePath              string    `json:"file_path"`
	ContentHash           string    `json:"content_hash"`
	GlobalFunctions       []string  `json:"global_functions"`
	TotalFunctions        int       `json:"total_functions"`
	UnterminatedFunctions int       `json:"unterminated_functions"`
	Timestamp             time.Time `json:"timestamp"`
}

// NewFunctionsIndexedMessage builds the event for doc.
func NewFunctionsIndexedMessage(doc *dto.LuaDocument, now time.Time) FunctionsIndexedMessage {
	globals := make([]string, 0, len(doc.GlobalFunctions))
	for _, fn := range doc.GlobalFunctions {
		globals = append(globals, fn.Name)
	}

	return FunctionsIndexedMessage{
		MessageID:             uuid.New().String(),
		ScanID:                doc.ScanID,
		FilePath:              doc.FilePath,
		ContentHash:           doc.ContentHash,
		GlobalFunctions:       globals,
		TotalFunctions:        doc.Stats.TotalFunctions,
		UnterminatedFunctions: doc.Stats.UnterminatedFunctions,
		Timestamp:             now.UTC(),
	}
}

// jetStream is the part of nats.JetStreamContext the publisher uses.
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// ConnectionHealthStatus represents the health status of NATS connection.
type ConnectionHealthStatus struct {
	Connected  bool   `json:"connected"`
	LastError  string `json:"last_error,omitempty"`
	Reconnects int    `json:"reconnects"`
}

// MessageMetrics tracks message publishing metrics.
type MessageMetrics struct {
	PublishedCount    int64         `json:"published_count"`
	FailedCount       int64         `json:"failed_count"`
	AverageLatency    time.Duration `json:"average_latency"`
	LastPublishedTime time.Time     `json:"last_published_time"`
}

// NATSFunctionPublisher publishes FunctionsIndexed events to NATS JetStream.
type NATSFunctionPublisher struct {
	config config.NATSConfig
	conn   *nats.Conn
	js     jetStream
	now    func() time.Time
	logger logging.ApplicationLogger

	mutex           sync.RWMutex // Protects the fields below
	reconnectCount  int
	lastError       error
	metrics         MessageMetrics
	failureCount    int
	lastFailureTime time.Time
}

var _ outbound.FunctionEventPublisher = (*NATSFunctionPublisher)(nil)

// NewNATSFunctionPublisher validates cfg and creates an unconnected publisher.
func NewNATSFunctionPublisher(cfg config.NATSConfig) (*NATSFunctionPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &NATSFunctionPublisher{
		config: cfg,
		now:    time.Now,
		logger: slogger.WithComponent("nats-publisher"),
	}, nil
}

// Connect establishes the connection and the JetStream context.
func (n *NATSFunctionPublisher) Connect() error {
	opts := []nats.Option{
		nats.Name("luascan"),
		nats.MaxReconnects(n.config.MaxReconnects),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.Timeout(natsConnectionTimeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			n.mutex.Lock()
			n.reconnectCount++
			n.mutex.Unlock()
			slogger.InfoNoCtx("Reconnected to NATS", slogger.Field("url", n.config.URL))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				n.recordError(err)
				slogger.WarnNoCtx("Disconnected from NATS", slogger.Field("error", err.Error()))
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slogger.DebugNoCtx("NATS connection closed", slogger.Field("url", n.config.URL))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			n.recordError(err)
			slogger.ErrorNoCtx("NATS async error", slogger.Field("error", err.Error()))
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.recordError(err)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		n.recordError(err)
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	n.conn = conn
	n.js = js
	return nil
}

// Disconnect drains and closes the connection.
func (n *NATSFunctionPublisher) Disconnect() error {
	var err error
	if n.conn != nil {
		err = n.conn.Drain()
		n.conn = nil
	}
	n.js = nil
	return err
}

// EnsureStream creates the luascan stream if it does not exist.
func (n *NATSFunctionPublisher) EnsureStream() error {
	if n.js == nil {
		return ErrNotConnected
	}

	_, err := n.js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{StreamSubjects},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    streamMaxAge,
		Replicas:  1,
	})
	if err == nil || errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil
	}
	if _, infoErr := n.js.StreamInfo(StreamName); infoErr == nil {
		return nil
	}
	return fmt.Errorf("failed to create stream: %w", err)
}

// PublishFunctionsIndexed publishes the event for doc and waits for the
// JetStream acknowledgement. The message id doubles as the dedup key.
func (n *NATSFunctionPublisher) PublishFunctionsIndexed(ctx context.Context, doc *dto.LuaDocument) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("document cannot be nil")
	}
	if n.js == nil {
		n.updateMetrics(false, time.Since(start))
		return ErrNotConnected
	}
	if n.isCircuitBreakerOpen() {
		return ErrCircuitOpen
	}

	msg := NewFunctionsIndexedMessage(doc, n.now())
	data, err := json.Marshal(msg)
	if err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := n.js.Publish(FunctionsIndexedSubject, data, nats.MsgId(msg.MessageID), nats.Context(ctx)); err != nil {
		n.updateMetrics(false, time.Since(start))
		n.recordError(err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	n.updateMetrics(true, time.Since(start))
	n.logger.Debug(ctx, "Published functions indexed event", slogger.Fields{
		"message_id": msg.MessageID,
		"subject":    FunctionsIndexedSubject,
	})
	return nil
}

// GetConnectionHealth returns the current connection health status.
func (n *NATSFunctionPublisher) GetConnectionHealth() ConnectionHealthStatus {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	status := ConnectionHealthStatus{
		Connected:  n.conn != nil && n.conn.IsConnected(),
		Reconnects: n.reconnectCount,
	}
	if n.lastError != nil {
		status.LastError = n.lastError.Error()
	}
	return status
}

// GetMessageMetrics returns current message publishing metrics.
func (n *NATSFunctionPublisher) GetMessageMetrics() MessageMetrics {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.metrics
}

func (n *NATSFunctionPublisher) recordError(err error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.lastError = err
}

// updateMetrics updates message publishing metrics and the circuit breaker.
func (n *NATSFunctionPublisher) updateMetrics(success bool, latency time.Duration) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if !success {
		n.metrics.FailedCount++
		n.failureCount++
		n.lastFailureTime = time.Now()
		return
	}

	n.metrics.PublishedCount++
	n.metrics.LastPublishedTime = time.Now()
	n.failureCount = 0

	// EMA with alpha = 0.1
	if n.metrics.AverageLatency == 0 {
		n.metrics.AverageLatency = latency
	} else {
		n.metrics.AverageLatency = time.Duration(
			0.9*float64(n.metrics.AverageLatency) + 0.1*float64(latency),
		)
	}
}

// isCircuitBreakerOpen reports whether recent failures should block publishing.
// The breaker closes again once circuitOpenDuration has passed since the last failure.
func (n *NATSFunctionPublisher) isCircuitBreakerOpen() bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.failureCount >= circuitMaxFailures && time.Since(n.lastFailureTime) <= circuitOpenDuration
}

// ResetCircuitBreaker closes the circuit breaker.
func (n *NATSFunctionPublisher) ResetCircuitBreaker() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.failureCount = 0
	n.lastFailureTime = time.Time{}
}
