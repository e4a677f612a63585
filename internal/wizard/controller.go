// Package wizard implements the three-step creator match form: business
// profile, creator profile, then results with an optional email capture.
//
// The Controller owns the form state and is the only thing that mutates it.
// Scoring, email delivery and user-facing messages are collaborators
// injected through Dependencies.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/common/logger"
	"creator-match/internal/common/metrics"
	"creator-match/internal/models"
)

var (
	ErrInvalidTransition    = errors.New("wizard: action not allowed in current step")
	ErrStepInactive         = errors.New("wizard: field belongs to an inactive step")
	ErrSubmissionPending    = errors.New("wizard: email submission already in flight")
	ErrEmailCaptureDisabled = errors.New("wizard: email capture is disabled")
	ErrSubmissionDiscarded  = errors.New("wizard: email outcome discarded after reset")
)

const (
	titleResultsSent         = "Results Sent"
	msgResultsSent           = "Check your inbox for the full match report."
	titleDeliveryFailed      = "Delivery Failed"
	msgDeliveryFailed        = "We couldn't send your results. Please try again."
	titleAnalysisUnavailable = "Analysis Unavailable"
	msgAnalysisUnavailable   = "We couldn't analyze this creator right now. Please try again."
)

// ScoreGenerator produces a MatchResult for a business/creator pair.
type ScoreGenerator interface {
	Generate(ctx context.Context, business models.BusinessProfile, creator models.CreatorProfile) (*models.MatchResult, error)
}

// EmailDispatcher delivers a result to an address.
type EmailDispatcher interface {
	Send(ctx context.Context, address string, result *models.MatchResult) (*models.DeliveryReceipt, error)
}

// NotificationSink surfaces a message to the visitor. It is fire-and-forget.
type NotificationSink interface {
	Notify(ctx context.Context, kind models.NotificationKind, title, message string)
}

// Config selects the form variant.
type Config struct {
	RequireWebsite     bool
	EnableEmailCapture bool
}

type Dependencies struct {
	Scores   ScoreGenerator
	Email    EmailDispatcher
	Notifier NotificationSink
	Logger   logger.Logger
}

// EmailOutcome is delivered exactly once per accepted email submission.
type EmailOutcome struct {
	Status  models.EmailStatus
	Receipt *models.DeliveryReceipt
	Err     error
}

type Controller struct {
	cfg      Config
	scores   ScoreGenerator
	email    EmailDispatcher
	notifier NotificationSink
	logger   logger.Logger

	mu    sync.Mutex
	state State
	// generation changes on Reset and Restore so that a dispatch started
	// before either cannot write into the new form.
	generation uint64
	inflight   sync.WaitGroup
}

func New(cfg Config, deps Dependencies) (*Controller, error) {
	if deps.Scores == nil {
		return nil, fmt.Errorf("wizard: score generator is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("wizard: notification sink is required")
	}
	if cfg.EnableEmailCapture && deps.Email == nil {
		return nil, fmt.Errorf("wizard: email dispatcher is required when email capture is enabled")
	}

	return &Controller{
		cfg:      cfg,
		scores:   deps.Scores,
		email:    deps.Email,
		notifier: deps.Notifier,
		logger:   logger.ForComponent(deps.Logger, "wizard"),
		state:    initialState(),
	}, nil
}

func (c *Controller) Config() Config {
	return c.cfg
}

// Snapshot returns a copy of the current form state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Step
}

// Restore replaces the form state, e.g. after loading a persisted session.
// A pending email cannot be resumed and comes back idle.
func (c *Controller) Restore(s State) error {
	if !s.Step.Valid() {
		return fmt.Errorf("wizard: cannot restore unknown step %q", s.Step)
	}
	restored := s.clone()
	if restored.Email != nil && restored.Email.Status == models.EmailPending {
		restored.Email.Status = models.EmailIdle
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = restored
	c.generation++
	return nil
}

// SetBusinessField edits the business profile while its step is active.
func (c *Controller) SetBusinessField(field models.Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Step != StepBusinessInput {
		return fmt.Errorf("%w: business field %q in step %s", ErrStepInactive, field, c.state.Step)
	}
	return c.state.Business.Set(field, value)
}

// SetCreatorField edits the creator profile while its step is active.
func (c *Controller) SetCreatorField(field models.Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Step != StepCreatorInput {
		return fmt.Errorf("%w: creator field %q in step %s", ErrStepInactive, field, c.state.Step)
	}
	return c.state.Creator.Set(field, value)
}

// SubmitBusiness moves from BusinessInput to CreatorInput when the business
// profile passes validation.
func (c *Controller) SubmitBusiness(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Step != StepBusinessInput {
		step := c.state.Step
		c.mu.Unlock()
		return invalidTransition("submit-business", step)
	}
	if err := ValidateBusiness(c.state.Business, c.cfg.RequireWebsite); err != nil {
		c.mu.Unlock()
		c.rejected(ctx, StepBusinessInput, err)
		return err
	}
	c.advanceLocked(StepCreatorInput)
	c.mu.Unlock()
	return nil
}

// SubmitCreator validates the creator profile, runs the score generator and
// moves to Results. The lock is held across Generate so that a double submit
// cannot produce two results.
func (c *Controller) SubmitCreator(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Step != StepCreatorInput {
		step := c.state.Step
		c.mu.Unlock()
		return invalidTransition("submit-creator", step)
	}
	if err := ValidateCreator(c.state.Creator); err != nil {
		c.mu.Unlock()
		c.rejected(ctx, StepCreatorInput, err)
		return err
	}

	result, err := c.scores.Generate(ctx, c.state.Business, c.state.Creator)
	if err == nil && !result.Valid() {
		err = fmt.Errorf("score generator returned an inconsistent result: %+v", result)
	}
	if err != nil {
		c.mu.Unlock()
		stdErr := apperrors.NewAnalysisUnavailableError(err)
		c.logger.Error("match analysis failed", map[string]interface{}{"error": err})
		c.notify(ctx, models.NotificationFailure, titleAnalysisUnavailable, msgAnalysisUnavailable)
		return stdErr
	}

	c.state.Result = result.Clone()
	if c.cfg.EnableEmailCapture {
		c.state.Email = &models.EmailSubmission{Status: models.EmailIdle}
	}
	c.advanceLocked(StepResults)
	c.mu.Unlock()

	metrics.MatchScores.Observe(float64(result.Compatibility))
	c.logger.Info("match analysis complete", map[string]interface{}{
		"compatibility":  result.Compatibility,
		"recommendation": string(result.Recommendation),
	})
	return nil
}

// Back returns from CreatorInput to BusinessInput. Nothing is cleared.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Step != StepCreatorInput {
		return invalidTransition("back", c.state.Step)
	}
	c.advanceLocked(StepBusinessInput)
	return nil
}

// Reset returns from Results to a freshly created form.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Step != StepResults {
		return invalidTransition("reset", c.state.Step)
	}
	from := c.state.Step
	c.state = initialState()
	c.generation++
	metrics.RecordTransition(string(from), string(StepBusinessInput))
	c.logger.Debug("wizard reset", nil)
	return nil
}

// SubmitEmail validates the address and starts an asynchronous dispatch. The
// returned channel yields one outcome after the submission status has been
// updated. While a dispatch is pending further calls return
// ErrSubmissionPending and have no other effect.
func (c *Controller) SubmitEmail(ctx context.Context, address string) (<-chan EmailOutcome, error) {
	c.mu.Lock()
	if !c.cfg.EnableEmailCapture {
		c.mu.Unlock()
		return nil, ErrEmailCaptureDisabled
	}
	if c.state.Step != StepResults || c.state.Email == nil {
		step := c.state.Step
		c.mu.Unlock()
		return nil, invalidTransition("submit-email", step)
	}
	if c.state.Email.Status == models.EmailPending {
		c.mu.Unlock()
		return nil, ErrSubmissionPending
	}
	if err := ValidateEmail(address); err != nil {
		c.mu.Unlock()
		c.rejected(ctx, StepResults, err)
		return nil, err
	}

	c.state.Email = &models.EmailSubmission{Address: address, Status: models.EmailPending}
	gen := c.generation
	result := c.state.Result.Clone()
	out := make(chan EmailOutcome, 1)
	c.inflight.Add(1)
	c.mu.Unlock()

	// The dispatch outlives the triggering request.
	go c.dispatch(context.WithoutCancel(ctx), gen, address, result, out)
	return out, nil
}

// Wait blocks until every in-flight email dispatch has resolved.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) dispatch(ctx context.Context, gen uint64, address string, result *models.MatchResult, out chan<- EmailOutcome) {
	defer c.inflight.Done()
	defer close(out)

	start := time.Now()
	receipt, err := c.email.Send(ctx, address, result)

	provider := "unknown"
	if receipt != nil && receipt.Provider != "" {
		provider = receipt.Provider
	}
	metrics.EmailDispatchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if gen != c.generation || c.state.Email == nil {
		c.mu.Unlock()
		c.logger.Info("discarding email outcome for a reset form", map[string]interface{}{"success": err == nil})
		out <- EmailOutcome{Status: models.EmailIdle, Receipt: receipt, Err: ErrSubmissionDiscarded}
		return
	}
	if err != nil {
		c.state.Email.Status = models.EmailIdle
	} else {
		c.state.Email.Status = models.EmailSent
		if receipt != nil {
			c.state.Email.MessageID = receipt.MessageID
		}
	}
	status := c.state.Email.Status
	c.mu.Unlock()

	if err != nil {
		metrics.EmailDispatches.WithLabelValues(provider, "failed").Inc()
		stdErr, ok := apperrors.AsStandardError(err)
		if !ok || stdErr.Code != apperrors.ErrCodeDeliveryFailed {
			stdErr = apperrors.NewDeliveryFailedError(provider, err)
		}
		c.logger.Error("email dispatch failed", map[string]interface{}{"error": err})
		c.notify(ctx, models.NotificationFailure, titleDeliveryFailed, msgDeliveryFailed)
		out <- EmailOutcome{Status: status, Err: stdErr}
		return
	}

	metrics.EmailDispatches.WithLabelValues(provider, "sent").Inc()
	c.logger.Info("email dispatched", map[string]interface{}{"provider": provider})
	c.notify(ctx, models.NotificationSuccess, titleResultsSent, msgResultsSent)
	out <- EmailOutcome{Status: status, Receipt: receipt}
}

func (c *Controller) advanceLocked(to Step) {
	from := c.state.Step
	c.state.Step = to
	c.state.Progress = to.Progress()
	metrics.RecordTransition(string(from), string(to))
	c.logger.Debug("wizard advanced", map[string]interface{}{"from": string(from), "to": string(to)})
}

func (c *Controller) rejected(ctx context.Context, step Step, err error) {
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok {
		return
	}
	metrics.WizardValidationFailures.WithLabelValues(string(step), string(stdErr.Code)).Inc()
	c.logger.Info("submission rejected", map[string]interface{}{
		"step":      string(step),
		"errorCode": string(stdErr.Code),
	})
	c.notify(ctx, models.NotificationValidationError, stdErr.Message, stdErr.Details)
}

func (c *Controller) notify(ctx context.Context, kind models.NotificationKind, title, message string) {
	metrics.NotificationsEmitted.WithLabelValues(string(kind)).Inc()
	c.notifier.Notify(ctx, kind, title, message)
}

func invalidTransition(action string, step Step) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, step)
}
