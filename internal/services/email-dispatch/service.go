package emaildispatch

import (
	"context"
	"fmt"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/common/logger"
	"creator-match/internal/models"
	"creator-match/internal/wizard"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"
)

const Name = "email-dispatch"

// SESService is the slice of the SES client the dispatcher needs.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type ServiceDependencies struct {
	SESClient SESService
	Logger    logger.Logger
}

// New returns the dispatcher selected by config.Provider.
func New(deps ServiceDependencies, config *Config) (wizard.EmailDispatcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Provider {
	case ProviderSES:
		if deps.SESClient == nil {
			return nil, fmt.Errorf("ses provider requires an SES client")
		}
		return NewSESDispatcher(deps, config), nil
	default:
		return NewSimulatedDispatcher(deps, config), nil
	}
}

// ==========================
// Simulated
// ==========================

// SimulatedDispatcher waits SimulatedDelay and reports success without
// sending anything.
type SimulatedDispatcher struct {
	delay  time.Duration
	logger logger.Logger
}

func NewSimulatedDispatcher(deps ServiceDependencies, config *Config) *SimulatedDispatcher {
	return &SimulatedDispatcher{
		delay:  config.SimulatedDelay,
		logger: logger.ForComponent(deps.Logger, Name).WithFields(map[string]interface{}{"provider": ProviderSimulated}),
	}
}

func (d *SimulatedDispatcher) Send(ctx context.Context, address string, result *models.MatchResult) (*models.DeliveryReceipt, error) {
	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, apperrors.NewDeliveryFailedError(ProviderSimulated, ctx.Err())
		}
	}

	receipt := &models.DeliveryReceipt{
		MessageID: uuid.New().String(),
		Provider:  ProviderSimulated,
		SentAt:    time.Now().UTC(),
	}
	d.logger.Info("simulated results email", map[string]interface{}{
		"messageId":     receipt.MessageID,
		"compatibility": result.Compatibility,
	})
	return receipt, nil
}

// ==========================
// SES
// ==========================

type SESDispatcher struct {
	client  SESService
	from    string
	subject string
	timeout time.Duration
	logger  logger.Logger
}

func NewSESDispatcher(deps ServiceDependencies, config *Config) *SESDispatcher {
	return &SESDispatcher{
		client:  deps.SESClient,
		from:    config.FromEmail,
		subject: config.Subject,
		timeout: config.Timeout,
		logger:  logger.ForComponent(deps.Logger, Name).WithFields(map[string]interface{}{"provider": ProviderSES}),
	}
}

func (d *SESDispatcher) Send(ctx context.Context, address string, result *models.MatchResult) (*models.DeliveryReceipt, error) {
	if result == nil {
		return nil, apperrors.NewDeliveryFailedError(ProviderSES, fmt.Errorf("no match result to send"))
	}

	text, html, err := RenderReport(result)
	if err != nil {
		return nil, apperrors.NewDeliveryFailedError(ProviderSES, fmt.Errorf("render report: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{address},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(d.subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(d.from),
	})
	if err != nil {
		d.logger.Error("ses send failed", map[string]interface{}{"error": err})
		return nil, apperrors.NewDeliveryFailedError(ProviderSES, err)
	}

	receipt := &models.DeliveryReceipt{
		MessageID: aws.ToString(out.MessageId),
		Provider:  ProviderSES,
		SentAt:    time.Now().UTC(),
	}
	d.logger.Info("results email sent", map[string]interface{}{"messageId": receipt.MessageID})
	return receipt, nil
}
