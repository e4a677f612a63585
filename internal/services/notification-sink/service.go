package notificationsink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"creator-match/internal/common/logger"
	"creator-match/internal/models"
	"creator-match/internal/wizard"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const Name = "notification-sink"

// ==========================
// Log
// ==========================

type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: logger.ForComponent(log, Name)}
}

func (s *LogSink) Notify(_ context.Context, kind models.NotificationKind, title, message string) {
	fields := map[string]interface{}{
		"kind":    string(kind),
		"title":   title,
		"message": message,
	}
	if kind == models.NotificationSuccess {
		s.logger.Info("notification", fields)
		return
	}
	s.logger.Warn("notification", fields)
}

// ==========================
// Outbox
// ==========================

const DefaultOutboxCapacity = 32

// Outbox buffers one session's notifications until the host drains them.
// When full the oldest entry is dropped.
type Outbox struct {
	mu       sync.Mutex
	items    []models.Notification
	capacity int
	now      func() time.Time
}

func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = DefaultOutboxCapacity
	}
	return &Outbox{capacity: capacity, now: time.Now}
}

func (o *Outbox) Notify(_ context.Context, kind models.NotificationKind, title, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.items) == o.capacity {
		o.items = append(o.items[:0], o.items[1:]...)
	}
	o.items = append(o.items, models.Notification{
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: o.now().UTC(),
	})
}

// Drain returns the buffered notifications oldest first and empties the box.
func (o *Outbox) Drain() []models.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := o.items
	o.items = nil
	if out == nil {
		return []models.Notification{}
	}
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// ==========================
// SNS
// ==========================

// SNSService is the slice of the SNS client the sink needs.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSConfig struct {
	TopicARN string
	Timeout  time.Duration
	// Kinds limits which notifications are published. Empty means success
	// and failure.
	Kinds []models.NotificationKind
}

// SNSSink publishes notifications to a topic for lead follow-up.
type SNSSink struct {
	client  SNSService
	topic   string
	timeout time.Duration
	kinds   map[models.NotificationKind]bool
	logger  logger.Logger
	// Attributes are attached to every message, e.g. the session id.
	attributes map[string]string
}

type snsMessage struct {
	Kind      models.NotificationKind `json:"kind"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Timestamp time.Time               `json:"timestamp"`
	SessionID string                  `json:"sessionId,omitempty"`
}

func NewSNSSink(client SNSService, config SNSConfig, log logger.Logger) *SNSSink {
	kinds := config.Kinds
	if len(kinds) == 0 {
		kinds = []models.NotificationKind{models.NotificationSuccess, models.NotificationFailure}
	}
	set := make(map[models.NotificationKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SNSSink{
		client:  client,
		topic:   config.TopicARN,
		timeout: timeout,
		kinds:   set,
		logger:  logger.ForComponent(log, Name).WithFields(map[string]interface{}{"sink": "sns"}),
	}
}

// ForSession returns a copy that tags every message with sessionID.
func (s *SNSSink) ForSession(sessionID string) *SNSSink {
	cp := *s
	cp.attributes = map[string]string{"sessionId": sessionID}
	cp.logger = s.logger.WithFields(map[string]interface{}{"sessionId": sessionID})
	return &cp
}

func (s *SNSSink) Notify(ctx context.Context, kind models.NotificationKind, title, message string) {
	if !s.kinds[kind] {
		return
	}

	body, err := json.Marshal(snsMessage{
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
		SessionID: s.attributes["sessionId"],
	})
	if err != nil {
		s.logger.Error("encode notification", map[string]interface{}{"error": err})
		return
	}

	attrs := map[string]types.MessageAttributeValue{
		"kind": {DataType: aws.String("String"), StringValue: aws.String(string(kind))},
	}
	for k, v := range s.attributes {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topic),
		Subject:           aws.String(title),
		Message:           aws.String(string(body)),
		MessageAttributes: attrs,
	}); err != nil {
		s.logger.Error("sns publish failed", map[string]interface{}{
			"error": err,
			"kind":  string(kind),
		})
	}
}

// ==========================
// Fanout
// ==========================

// Fanout delivers each notification to every sink in order.
type Fanout []wizard.NotificationSink

func (f Fanout) Notify(ctx context.Context, kind models.NotificationKind, title, message string) {
	for _, s := range f {
		if s != nil {
			s.Notify(ctx, kind, title, message)
		}
	}
}
