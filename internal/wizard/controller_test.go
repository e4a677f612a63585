package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/common/logger"
	"creator-match/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ==========================
// Collaborator doubles
// ==========================

type mockScores struct {
	mock.Mock
}

func (m *mockScores) Generate(ctx context.Context, b models.BusinessProfile, c models.CreatorProfile) (*models.MatchResult, error) {
	args := m.Called(ctx, b, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchResult), args.Error(1)
}

type recordingSink struct {
	mu    sync.Mutex
	items []models.Notification
}

func (s *recordingSink) Notify(_ context.Context, kind models.NotificationKind, title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, models.Notification{Kind: kind, Title: title, Message: message})
}

func (s *recordingSink) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.items...)
}

// gatedDispatcher blocks every Send until release is closed.
type gatedDispatcher struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func newGatedDispatcher() *gatedDispatcher {
	return &gatedDispatcher{release: make(chan struct{})}
}

func (d *gatedDispatcher) Send(ctx context.Context, address string, result *models.MatchResult) (*models.DeliveryReceipt, error) {
	d.calls.Add(1)
	<-d.release
	if d.err != nil {
		return nil, d.err
	}
	return &models.DeliveryReceipt{MessageID: "msg-" + address, Provider: "test", SentAt: time.Now()}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func goodResult() *models.MatchResult {
	return &models.MatchResult{
		Compatibility:  64,
		Reasons:        []string{"Moderate audience overlap", "Some content synergy potential"},
		Recommendation: models.RecommendationGood,
	}
}

type fixture struct {
	ctrl   *Controller
	scores *mockScores
	sink   *recordingSink
	email  *gatedDispatcher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		scores: &mockScores{},
		sink:   &recordingSink{},
		email:  newGatedDispatcher(),
	}
	f.scores.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goodResult(), nil).Maybe()

	ctrl, err := New(cfg, Dependencies{
		Scores:   f.scores,
		Email:    f.email,
		Notifier: f.sink,
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func emailConfig() Config {
	return Config{EnableEmailCapture: true}
}

func (f *fixture) toResults(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.SetBusinessField(models.FieldInstagram, "@brand"))
	require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))
	require.NoError(t, f.ctrl.SetCreatorField(models.FieldTikTok, "@creator"))
	require.NoError(t, f.ctrl.SubmitCreator(context.Background()))
	require.Equal(t, StepResults, f.ctrl.Step())
}

func awaitOutcome(t *testing.T, ch <-chan EmailOutcome) EmailOutcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		require.True(t, ok, "outcome channel closed without a value")
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email outcome")
		return EmailOutcome{}
	}
}

// ==========================
// Construction
// ==========================

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, Dependencies{Notifier: &recordingSink{}})
	assert.Error(t, err)

	_, err = New(Config{}, Dependencies{Scores: &mockScores{}})
	assert.Error(t, err)

	_, err = New(Config{EnableEmailCapture: true}, Dependencies{Scores: &mockScores{}, Notifier: &recordingSink{}})
	assert.Error(t, err, "email capture needs a dispatcher")

	ctrl, err := New(Config{}, Dependencies{Scores: &mockScores{}, Notifier: &recordingSink{}})
	require.NoError(t, err)
	assert.Equal(t, StepBusinessInput, ctrl.Step())
	assert.Equal(t, 1, ctrl.Snapshot().Progress)
}

// ==========================
// Business step
// ==========================

func TestSubmitBusiness_MissingSocial(t *testing.T) {
	tests := []struct {
		name    string
		profile models.BusinessProfile
	}{
		{name: "all empty", profile: models.BusinessProfile{}},
		{name: "website only", profile: models.BusinessProfile{Website: "https://brand.example"}},
		{name: "whitespace handles", profile: models.BusinessProfile{Instagram: " ", YouTube: "\t", TikTok: "\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			for _, field := range []models.Field{models.FieldWebsite, models.FieldInstagram, models.FieldYouTube, models.FieldTikTok} {
				require.NoError(t, f.ctrl.SetBusinessField(field, tt.profile.Get(field)))
			}
			before := f.ctrl.Snapshot()

			err := f.ctrl.SubmitBusiness(context.Background())

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))
			assert.Equal(t, before, f.ctrl.Snapshot(), "no state mutation on failure")

			notes := f.sink.all()
			require.Len(t, notes, 1)
			assert.Equal(t, models.NotificationValidationError, notes[0].Kind)
			assert.Equal(t, "Missing Information", notes[0].Title)
			assert.Equal(t, "Please provide at least one social media account.", notes[0].Message)
		})
	}
}

func TestSubmitBusiness_AnySocialAdvances(t *testing.T) {
	for _, field := range models.SocialFields {
		t.Run(string(field), func(t *testing.T) {
			f := newFixture(t, Config{})
			require.NoError(t, f.ctrl.SetBusinessField(field, "@brand"))

			require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))

			snap := f.ctrl.Snapshot()
			assert.Equal(t, StepCreatorInput, snap.Step)
			assert.Equal(t, 2, snap.Progress)
			assert.Equal(t, "@brand", snap.Business.Get(field), "advance does not transform data")
			assert.Empty(t, f.sink.all())
		})
	}
}

func TestSubmitBusiness_RequireWebsite(t *testing.T) {
	f := newFixture(t, Config{RequireWebsite: true})
	require.NoError(t, f.ctrl.SetBusinessField(models.FieldYouTube, "@brand"))

	err := f.ctrl.SubmitBusiness(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))
	assert.Equal(t, StepBusinessInput, f.ctrl.Step())
	require.Len(t, f.sink.all(), 1)
	assert.Equal(t, "Please provide your website URL.", f.sink.all()[0].Message)

	require.NoError(t, f.ctrl.SetBusinessField(models.FieldWebsite, "https://brand.example"))
	require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))
	assert.Equal(t, StepCreatorInput, f.ctrl.Step())
}

// ==========================
// Creator step
// ==========================

func TestSubmitCreator_Advances(t *testing.T) {
	f := newFixture(t, emailConfig())
	require.NoError(t, f.ctrl.SetBusinessField(models.FieldInstagram, "@brand"))
	require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))
	require.NoError(t, f.ctrl.SetCreatorField(models.FieldYouTube, "@creator"))

	require.NoError(t, f.ctrl.SubmitCreator(context.Background()))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StepResults, snap.Step)
	assert.Equal(t, 3, snap.Progress)
	require.NotNil(t, snap.Result)
	assert.Equal(t, goodResult(), snap.Result)
	require.NotNil(t, snap.Email)
	assert.Equal(t, models.EmailIdle, snap.Email.Status)

	f.scores.AssertNumberOfCalls(t, "Generate", 1)
	f.scores.AssertCalled(t, "Generate", mock.Anything,
		models.BusinessProfile{Instagram: "@brand"},
		models.CreatorProfile{YouTube: "@creator"})
}

func TestSubmitCreator_MissingSocial(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.SetBusinessField(models.FieldInstagram, "@brand"))
	require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))

	err := f.ctrl.SubmitCreator(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))
	assert.Equal(t, StepCreatorInput, f.ctrl.Step())
	assert.Nil(t, f.ctrl.Snapshot().Result)
	f.scores.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)

	notes := f.sink.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "Please provide at least one creator social media account.", notes[0].Message)
}

func TestSubmitCreator_GeneratorFailure(t *testing.T) {
	scores := &mockScores{}
	scores.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("upstream down"))
	sink := &recordingSink{}
	ctrl, err := New(Config{}, Dependencies{Scores: scores, Notifier: sink})
	require.NoError(t, err)

	require.NoError(t, ctrl.SetBusinessField(models.FieldInstagram, "@brand"))
	require.NoError(t, ctrl.SubmitBusiness(context.Background()))
	require.NoError(t, ctrl.SetCreatorField(models.FieldInstagram, "@creator"))

	err = ctrl.SubmitCreator(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAnalysisUnavailable))
	assert.Equal(t, StepCreatorInput, ctrl.Step())
	require.Len(t, sink.all(), 1)
	assert.Equal(t, models.NotificationFailure, sink.all()[0].Kind)
}

func TestSubmitCreator_RejectsInconsistentResult(t *testing.T) {
	scores := &mockScores{}
	scores.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(&models.MatchResult{
		Compatibility:  90,
		Reasons:        []string{"x"},
		Recommendation: models.RecommendationPoor,
	}, nil)
	ctrl, err := New(Config{}, Dependencies{Scores: scores, Notifier: &recordingSink{}})
	require.NoError(t, err)
	require.NoError(t, ctrl.SetBusinessField(models.FieldInstagram, "@brand"))
	require.NoError(t, ctrl.SubmitBusiness(context.Background()))
	require.NoError(t, ctrl.SetCreatorField(models.FieldInstagram, "@creator"))

	err = ctrl.SubmitCreator(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAnalysisUnavailable))
}

// ==========================
// Back / Reset
// ==========================

func TestBack_PreservesData(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.ctrl.SetBusinessField(models.FieldWebsite, "https://brand.example"))
	require.NoError(t, f.ctrl.SetBusinessField(models.FieldInstagram, "@brand"))
	require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))
	require.NoError(t, f.ctrl.SetCreatorField(models.FieldTikTok, "@creator"))

	require.NoError(t, f.ctrl.Back())

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StepBusinessInput, snap.Step)
	assert.Equal(t, models.BusinessProfile{Website: "https://brand.example", Instagram: "@brand"}, snap.Business)
	assert.Equal(t, models.CreatorProfile{TikTok: "@creator"}, snap.Creator)

	// and forward again without re-entering anything
	require.NoError(t, f.ctrl.SubmitBusiness(context.Background()))
	assert.Equal(t, models.CreatorProfile{TikTok: "@creator"}, f.ctrl.Snapshot().Creator)
	assert.Empty(t, f.sink.all())
}

func TestReset_MatchesFreshWizard(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	close(f.email.release)
	ch, err := f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	awaitOutcome(t, ch)

	require.NoError(t, f.ctrl.Reset())

	fresh := newFixture(t, emailConfig())
	assert.Equal(t, fresh.ctrl.Snapshot(), f.ctrl.Snapshot())
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t, emailConfig())
	ctx := context.Background()

	assert.ErrorIs(t, f.ctrl.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, f.ctrl.Reset(), ErrInvalidTransition)
	assert.ErrorIs(t, f.ctrl.SubmitCreator(ctx), ErrInvalidTransition)
	_, err := f.ctrl.SubmitEmail(ctx, "user@example.com")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, f.ctrl.SetCreatorField(models.FieldInstagram, "@x"), ErrStepInactive)

	f.toResults(t)
	assert.ErrorIs(t, f.ctrl.SubmitBusiness(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, f.ctrl.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, f.ctrl.SetBusinessField(models.FieldInstagram, "@x"), ErrStepInactive)

	assert.Empty(t, f.sink.all(), "invalid transitions are not user notifications")
}

// ==========================
// Email capture
// ==========================

func TestSubmitEmail_InvalidFormat(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	ch, err := f.ctrl.SubmitEmail(context.Background(), "not-an-email")

	require.Error(t, err)
	assert.Nil(t, ch)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidFormat))
	assert.Equal(t, int32(0), f.email.calls.Load())
	assert.Equal(t, models.EmailIdle, f.ctrl.Snapshot().Email.Status)

	notes := f.sink.all()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationValidationError, notes[0].Kind)
	assert.Equal(t, "Invalid Email", notes[0].Title)
}

func TestSubmitEmail_PendingThenSent(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	ch, err := f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	require.NoError(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, models.EmailPending, snap.Email.Status)
	assert.Equal(t, "user@example.com", snap.Email.Address)

	close(f.email.release)
	outcome := awaitOutcome(t, ch)
	f.ctrl.Wait()

	require.NoError(t, outcome.Err)
	assert.Equal(t, models.EmailSent, outcome.Status)
	assert.Equal(t, int32(1), f.email.calls.Load())

	snap = f.ctrl.Snapshot()
	assert.Equal(t, models.EmailSent, snap.Email.Status)
	assert.Equal(t, "msg-user@example.com", snap.Email.MessageID)

	notes := f.sink.all()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationSuccess, notes[0].Kind)
}

func TestSubmitEmail_SingleFlight(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	ch, err := f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			second, err := f.ctrl.SubmitEmail(context.Background(), "other@example.com")
			assert.ErrorIs(t, err, ErrSubmissionPending)
			assert.Nil(t, second)
		}()
	}
	wg.Wait()

	assert.Equal(t, "user@example.com", f.ctrl.Snapshot().Email.Address)

	close(f.email.release)
	awaitOutcome(t, ch)
	f.ctrl.Wait()

	assert.Equal(t, int32(1), f.email.calls.Load())
	assert.Len(t, f.sink.all(), 1, "rejected resubmits are silent")
}

func TestSubmitEmail_FailureRevertsToIdle(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.email.err = errors.New("smtp unreachable")
	f.toResults(t)

	ch, err := f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	close(f.email.release)
	outcome := awaitOutcome(t, ch)
	f.ctrl.Wait()

	require.Error(t, outcome.Err)
	assert.True(t, apperrors.HasCode(outcome.Err, apperrors.ErrCodeDeliveryFailed))
	assert.Equal(t, models.EmailIdle, outcome.Status)
	assert.Equal(t, models.EmailIdle, f.ctrl.Snapshot().Email.Status)

	notes := f.sink.all()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFailure, notes[0].Kind)

	// idle again, so a retry is accepted
	f.email.err = nil
	ch, err = f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.EmailSent, awaitOutcome(t, ch).Status)
	f.ctrl.Wait()
}

func TestSubmitEmail_ResetWhilePendingDiscardsOutcome(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	ch, err := f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.Reset())

	close(f.email.release)
	outcome := awaitOutcome(t, ch)
	f.ctrl.Wait()

	assert.ErrorIs(t, outcome.Err, ErrSubmissionDiscarded)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StepBusinessInput, snap.Step)
	assert.Nil(t, snap.Email)
	assert.Empty(t, f.sink.all())
}

func TestSubmitEmail_DetachedFromRequestContext(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := f.ctrl.SubmitEmail(ctx, "user@example.com")
	require.NoError(t, err)
	cancel()

	close(f.email.release)
	assert.Equal(t, models.EmailSent, awaitOutcome(t, ch).Status)
	f.ctrl.Wait()
}

func TestSubmitEmail_CaptureDisabled(t *testing.T) {
	f := newFixture(t, Config{})
	f.toResults(t)

	assert.Nil(t, f.ctrl.Snapshot().Email)
	_, err := f.ctrl.SubmitEmail(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, ErrEmailCaptureDisabled)
	assert.Equal(t, int32(0), f.email.calls.Load())
}

// ==========================
// Snapshot / Restore
// ==========================

func TestSnapshot_IsACopy(t *testing.T) {
	f := newFixture(t, emailConfig())
	f.toResults(t)

	snap := f.ctrl.Snapshot()
	snap.Result.Reasons[0] = "tampered"
	snap.Email.Address = "tampered@example.com"

	again := f.ctrl.Snapshot()
	assert.Equal(t, "Moderate audience overlap", again.Result.Reasons[0])
	assert.Empty(t, again.Email.Address)
}

func TestRestore(t *testing.T) {
	f := newFixture(t, emailConfig())

	err := f.ctrl.Restore(State{
		Step:     StepResults,
		Business: models.BusinessProfile{Instagram: "@brand"},
		Creator:  models.CreatorProfile{YouTube: "@creator"},
		Result:   goodResult(),
		Email:    &models.EmailSubmission{Address: "user@example.com", Status: models.EmailPending},
	})
	require.NoError(t, err)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StepResults, snap.Step)
	assert.Equal(t, 3, snap.Progress)
	assert.Equal(t, models.EmailIdle, snap.Email.Status, "pending cannot survive a restore")

	assert.Error(t, f.ctrl.Restore(State{Step: "somewhere"}))
}
