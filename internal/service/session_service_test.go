package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ────────────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeTemplates struct {
	mu          sync.Mutex
	templates   map[uuid.UUID]*model.AssessmentTemplate
	assigned    int
	completions []float64
}

func newFakeTemplates(ts ...*model.AssessmentTemplate) *fakeTemplates {
	f := &fakeTemplates{templates: make(map[uuid.UUID]*model.AssessmentTemplate)}
	for _, t := range ts {
		f.templates[t.ID] = t
	}
	return f
}

func (f *fakeTemplates) Create(_ context.Context, t *model.AssessmentTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplates) GetByID(_ context.Context, id uuid.UUID) (*model.AssessmentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTemplates) ListByOwnerPaginated(context.Context, int, int, int) ([]model.AssessmentTemplate, int, error) {
	return nil, 0, nil
}

func (f *fakeTemplates) ListByStatus(_ context.Context, status model.TemplateStatus) ([]model.AssessmentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssessmentTemplate
	for _, t := range f.templates {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) ListExpired(_ context.Context, now time.Time) ([]model.AssessmentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssessmentTemplate
	for _, t := range f.templates {
		if t.Status == model.TemplateStatusActive && t.ClosesAt != nil && t.ClosesAt.Before(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) Update(_ context.Context, t *model.AssessmentTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplates) UpdateStatus(_ context.Context, id uuid.UUID, status model.TemplateStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.templates[id]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeTemplates) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.templates, id)
	return nil
}

func (f *fakeTemplates) IncrementAssigned(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned++
	return nil
}

func (f *fakeTemplates) RecordCompletion(_ context.Context, _ uuid.UUID, percentage float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, percentage)
	return nil
}

type fakeQuestions struct {
	mu        sync.Mutex
	questions map[uuid.UUID][]model.Question
}

func newFakeQuestions() *fakeQuestions {
	return &fakeQuestions{questions: make(map[uuid.UUID][]model.Question)}
}

func (f *fakeQuestions) ListByTemplate(_ context.Context, templateID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Question(nil), f.questions[templateID]...), nil
}

func (f *fakeQuestions) CountByTemplate(_ context.Context, templateID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions[templateID]), nil
}

func (f *fakeQuestions) ReplaceForTemplate(_ context.Context, templateID uuid.UUID, questions []model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions[templateID] = questions
	return nil
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.ExamAttempt
	reports  map[uuid.UUID]*model.ScoreReport
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{
		attempts: make(map[uuid.UUID]*model.ExamAttempt),
		reports:  make(map[uuid.UUID]*model.ScoreReport),
	}
}

func (f *fakeAttempts) Create(_ context.Context, a *model.ExamAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[a.ID] = snapshot(a)
	return nil
}

func (f *fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return snapshot(a), nil
}

func (f *fakeAttempts) GetActive(_ context.Context, templateID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.TemplateID == templateID && a.StudentID == studentID && a.Status == model.AttemptStatusInProgress {
			return snapshot(a), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttempts) ListActive(context.Context) ([]model.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range f.attempts {
		if a.Status == model.AttemptStatusInProgress {
			out = append(out, *snapshot(a))
		}
	}
	return out, nil
}

func (f *fakeAttempts) HasSubmitted(_ context.Context, templateID uuid.UUID, studentID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.TemplateID == templateID && a.StudentID == studentID && a.Status == model.AttemptStatusSubmitted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttempts) CountUnsubmitted(_ context.Context, templateID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if a.TemplateID == templateID && a.Status == model.AttemptStatusInProgress {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttempts) ListByTemplate(context.Context, uuid.UUID, int, int) ([]model.AttemptResult, int64, error) {
	return nil, 0, nil
}

func (f *fakeAttempts) SaveProgress(_ context.Context, a *model.ExamAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[a.ID] = snapshot(a)
	return nil
}

func (f *fakeAttempts) MarkSubmitted(_ context.Context, a *model.ExamAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[a.ID] = snapshot(a)
	return nil
}

func (f *fakeAttempts) SaveReport(_ context.Context, report *model.ScoreReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[report.AttemptID] = report
	return nil
}

func (f *fakeAttempts) GetReport(_ context.Context, attemptID uuid.UUID) (*model.ScoreReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[attemptID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	reports []*model.ScoreReport
	err     error
}

func (f *fakeQueue) EnqueueReport(_ context.Context, report *model.ScoreReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeQueue) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

// ────────────────────────────────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────────────────────────────────

const testStudentID = 42

type engineFixture struct {
	svc       *SessionService
	template  *model.AssessmentTemplate
	templates *fakeTemplates
	questions *fakeQuestions
	attempts  *fakeAttempts
	queue     *fakeQueue
	clock     *fakeClock
}

func sessionQuestions(templateID uuid.UUID, count, marks int) []model.Question {
	qs := make([]model.Question, count)
	for i := range qs {
		qs[i] = model.Question{
			ID:           uuid.New(),
			TemplateID:   templateID,
			OrderNum:     i + 1,
			Text:         fmt.Sprintf("Question %d", i+1),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % model.OptionCount,
			Marks:        marks,
			Category:     model.CategoryAptitude,
		}
	}
	return qs
}

func newEngineFixture(durationMinutes int) *engineFixture {
	template := &model.AssessmentTemplate{
		ID:              uuid.New(),
		Title:           "Placement Aptitude Round",
		Subject:         "Quantitative Aptitude",
		Category:        model.CategoryAptitude,
		Difficulty:      model.DifficultyMedium,
		DurationMinutes: durationMinutes,
		PassingPercent:  50,
		Status:          model.TemplateStatusActive,
		Groups:          []model.QuestionGroup{{QuestionCount: 4, MarksPerQuestion: 2}},
	}

	templates := newFakeTemplates(template)
	questions := newFakeQuestions()
	questions.questions[template.ID] = sessionQuestions(template.ID, 4, 2)
	attempts := newFakeAttempts()
	queue := &fakeQueue{}
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	svc := NewSessionService(templates, questions, attempts, queue, zerolog.Nop())
	svc.now = clock.Now
	svc.tickInterval = 0 // ticks are driven manually

	return &engineFixture{
		svc:       svc,
		template:  template,
		templates: templates,
		questions: questions,
		attempts:  attempts,
		queue:     queue,
		clock:     clock,
	}
}

func (f *engineFixture) begin(t *testing.T) *model.ExamAttempt {
	t.Helper()
	attempt, err := f.svc.Begin(context.Background(), testStudentID, f.template.ID)
	require.NoError(t, err)
	return attempt
}

// ────────────────────────────────────────────────────────────────────────────
// Begin
// ────────────────────────────────────────────────────────────────────────────

func TestBegin_CreatesInProgressAttempt(t *testing.T) {
	f := newEngineFixture(30)

	attempt := f.begin(t)

	assert.Equal(t, model.AttemptStatusInProgress, attempt.Status)
	assert.Equal(t, 30*60, attempt.TimeRemaining)
	assert.Len(t, attempt.Answers, 4)
	assert.Equal(t, 0, attempt.CurrentIndex)
	for _, ans := range attempt.Answers {
		assert.Nil(t, ans.Selected)
		assert.False(t, ans.Marked)
	}
	assert.Equal(t, 1, f.templates.assigned)
}

func TestBegin_RejectsUnpublishedTemplate(t *testing.T) {
	f := newEngineFixture(30)
	f.template.Status = model.TemplateStatusDraft

	_, err := f.svc.Begin(context.Background(), testStudentID, f.template.ID)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBegin_RejectsClosedWindow(t *testing.T) {
	f := newEngineFixture(30)
	closed := f.clock.Now().Add(-time.Hour)
	f.template.ClosesAt = &closed

	_, err := f.svc.Begin(context.Background(), testStudentID, f.template.ID)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBegin_RejectsUnknownTemplate(t *testing.T) {
	f := newEngineFixture(30)

	_, err := f.svc.Begin(context.Background(), testStudentID, uuid.New())
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBegin_RejectsSecondOpenAttempt(t *testing.T) {
	f := newEngineFixture(30)
	f.begin(t)

	_, err := f.svc.Begin(context.Background(), testStudentID, f.template.ID)
	assert.ErrorIs(t, err, ErrAttemptInProgress)
}

func TestBegin_RejectsRetakeWhenDisallowed(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)

	_, err := f.svc.Submit(context.Background(), attempt.ID, testStudentID)
	require.NoError(t, err)

	_, err = f.svc.Begin(context.Background(), testStudentID, f.template.ID)
	assert.ErrorIs(t, err, ErrAlreadyAttempted)
}

func TestBegin_AllowsRetakeWhenEnabled(t *testing.T) {
	f := newEngineFixture(30)
	f.template.RetakeAllowed = true
	attempt := f.begin(t)

	_, err := f.svc.Submit(context.Background(), attempt.ID, testStudentID)
	require.NoError(t, err)

	second := f.begin(t)
	assert.NotEqual(t, attempt.ID, second.ID)
}

// ────────────────────────────────────────────────────────────────────────────
// In-flight interactions
// ────────────────────────────────────────────────────────────────────────────

func TestSelectAnswer_RecordsAndOverwrites(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 1, 2))
	require.NoError(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 1, 3))

	state, err := f.svc.State(ctx, testStudentID, f.template.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Answers[1].Selected)
	assert.Equal(t, 3, *state.Answers[1].Selected)
	assert.Equal(t, 1, state.CurrentIndex)
}

func TestSelectAnswer_RejectsOutOfRange(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 99, 0), ErrOutOfRange)
	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, -1, 0), ErrOutOfRange)
	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 0, 4), ErrOutOfRange)
	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 0, -1), ErrOutOfRange)
}

func TestSelectAnswer_RejectsWrongStudent(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)

	err := f.svc.SelectAnswer(context.Background(), attempt.ID, testStudentID+1, 0, 0)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestToggleMark_Flips(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ToggleMark(ctx, attempt.ID, testStudentID, 2))
	state, err := f.svc.State(ctx, testStudentID, f.template.ID)
	require.NoError(t, err)
	assert.True(t, state.Answers[2].Marked)

	require.NoError(t, f.svc.ToggleMark(ctx, attempt.ID, testStudentID, 2))
	state, err = f.svc.State(ctx, testStudentID, f.template.ID)
	require.NoError(t, err)
	assert.False(t, state.Answers[2].Marked)
}

func TestNavigate_AccountsTimePerQuestion(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	f.clock.Advance(30 * time.Second)
	require.NoError(t, f.svc.Navigate(ctx, attempt.ID, testStudentID, 2))

	f.clock.Advance(45 * time.Second)
	require.NoError(t, f.svc.Navigate(ctx, attempt.ID, testStudentID, 0))

	state, err := f.svc.State(ctx, testStudentID, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, state.Answers[0].TimeSpentSeconds)
	assert.Equal(t, 45, state.Answers[2].TimeSpentSeconds)
	assert.Equal(t, 0, state.CurrentIndex)
}

// ────────────────────────────────────────────────────────────────────────────
// Countdown and submission
// ────────────────────────────────────────────────────────────────────────────

func TestTick_CountsDownToAutoSubmit(t *testing.T) {
	f := newEngineFixture(1)
	attempt := f.begin(t)
	ctx := context.Background()

	for i := 0; i < 59; i++ {
		require.NoError(t, f.svc.Tick(ctx, attempt.ID))
	}
	state, err := f.svc.State(ctx, testStudentID, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.TimeRemaining)

	require.NoError(t, f.svc.Tick(ctx, attempt.ID))

	stored, err := f.attempts.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusSubmitted, stored.Status)
	assert.Equal(t, 0, stored.TimeRemaining)
	assert.Equal(t, 1, f.queue.count())

	// Late ticks against the terminal attempt are discarded.
	require.NoError(t, f.svc.Tick(ctx, attempt.ID))
	require.NoError(t, f.svc.Tick(ctx, attempt.ID))
	stored, err = f.attempts.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TimeRemaining)
	assert.Equal(t, 1, f.queue.count())
}

func TestSubmit_ScoresSelections(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	// Questions rotate correct answers 0,1,2,3; answer the first two right.
	require.NoError(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 0, 0))
	require.NoError(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 1, 1))
	require.NoError(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 2, 0))

	report, err := f.svc.Submit(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalScore)
	assert.Equal(t, 8, report.TotalPossible)
	assert.InDelta(t, 50.0, report.Percentage, 1e-9)
	assert.True(t, report.Passed)
}

func TestSubmit_Idempotent(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.queue.count())
}

func TestSubmit_EvictsFromLiveRegistry(t *testing.T) {
	f := newEngineFixture(30)
	f.svc.evictDelay = 0 // evict as soon as the attempt turns terminal
	f.queue.err = errors.New("redis down")
	attempt := f.begin(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)

	// The terminal attempt no longer occupies the registry.
	f.svc.mu.RLock()
	_, live := f.svc.live[attempt.ID]
	f.svc.mu.RUnlock()
	assert.False(t, live)

	// Retried submits and report reads come from the stored report.
	again, err := f.svc.Submit(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalScore, again.TotalScore)
	assert.Equal(t, first.AttemptID, again.AttemptID)

	report, err := f.svc.Report(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)
	assert.Equal(t, first.AttemptID, report.AttemptID)
}

func TestSubmit_QueueFailureFallsBackToDirectPersist(t *testing.T) {
	f := newEngineFixture(30)
	f.queue.err = errors.New("redis down")
	attempt := f.begin(t)
	ctx := context.Background()

	report, err := f.svc.Submit(ctx, attempt.ID, testStudentID)
	require.NoError(t, err)

	stored, err := f.attempts.GetReport(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, report, stored)
	require.Len(t, f.templates.completions, 1)
	assert.InDelta(t, report.Percentage, f.templates.completions[0], 1e-9)
}

func TestSubmit_ConcurrentWithExpiryProducesOneReport(t *testing.T) {
	f := newEngineFixture(1)
	attempt := f.begin(t)
	ctx := context.Background()

	for i := 0; i < 59; i++ {
		require.NoError(t, f.svc.Tick(ctx, attempt.ID))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = f.svc.Tick(ctx, attempt.ID)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.svc.Submit(ctx, attempt.ID, testStudentID)
	}()
	wg.Wait()

	stored, err := f.attempts.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusSubmitted, stored.Status)
	assert.Equal(t, 1, f.queue.count())
}

// ────────────────────────────────────────────────────────────────────────────
// Resume and rehydration
// ────────────────────────────────────────────────────────────────────────────

func TestState_ResumeRecomputesRemainingFromClock(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SelectAnswer(ctx, attempt.ID, testStudentID, 0, 1))

	// Simulate a restart mid-attempt.
	f.svc.mu.Lock()
	f.svc.live = make(map[uuid.UUID]*liveAttempt)
	f.svc.mu.Unlock()
	f.clock.Advance(10 * time.Minute)

	state, err := f.svc.State(ctx, testStudentID, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 20*60, state.TimeRemaining)
	require.NotNil(t, state.Answers[0].Selected)
	assert.Equal(t, 1, *state.Answers[0].Selected)
}

func TestRehydrate_ExpiredAttemptAutoSubmits(t *testing.T) {
	f := newEngineFixture(30)
	attempt := f.begin(t)

	f.svc.mu.Lock()
	f.svc.live = make(map[uuid.UUID]*liveAttempt)
	f.svc.mu.Unlock()
	f.clock.Advance(2 * time.Hour)

	require.NoError(t, f.svc.Rehydrate(context.Background()))

	stored, err := f.attempts.GetByID(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusSubmitted, stored.Status)
	assert.Equal(t, 0, stored.TimeRemaining)
	assert.Equal(t, 1, f.queue.count())
}

func TestState_NoAttempt(t *testing.T) {
	f := newEngineFixture(30)

	_, err := f.svc.State(context.Background(), testStudentID, f.template.ID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
