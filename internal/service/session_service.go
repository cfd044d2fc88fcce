package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/placehub/placement-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// SessionService is the state machine governing exam attempts:
// NotStarted → InProgress → Submitted (terminal). It owns the authoritative
// countdown; clients only observe time-remaining and may request submission.
//
// Every attempt is an independent unit of work. All mutating operations on
// one attempt serialize on that attempt's mutex, which is what makes the
// Tick auto-submit and an in-flight Submit racing produce exactly one
// terminal outcome and exactly one score report.
type SessionService struct {
	templates TemplateStore
	questions QuestionStore
	attempts  AttemptStore
	reports   ReportQueue
	log       zerolog.Logger

	// now, tickInterval, and evictDelay are fixed in production and
	// overridden in tests.
	now          func() time.Time
	tickInterval time.Duration
	evictDelay   time.Duration

	mu   sync.RWMutex
	live map[uuid.UUID]*liveAttempt
}

// liveAttempt is the in-memory authoritative state of one attempt.
type liveAttempt struct {
	mu        sync.Mutex
	attempt   *model.ExamAttempt
	questions []model.Question
	passing   float64
	report    *model.ScoreReport
	lastFocus time.Time
	stop      chan struct{}
}

// NewSessionService creates a new SessionService. reports may be nil, in
// which case score reports are persisted synchronously on submission.
func NewSessionService(
	templates TemplateStore,
	questions QuestionStore,
	attempts AttemptStore,
	reports ReportQueue,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		templates:    templates,
		questions:    questions,
		attempts:     attempts,
		reports:      reports,
		log:          log.With().Str("component", "session_engine").Logger(),
		now:          time.Now,
		tickInterval: time.Second,
		evictDelay:   time.Minute,
		live:         make(map[uuid.UUID]*liveAttempt),
	}
}

// Begin creates an InProgress attempt for the student against the template.
// Preconditions: template ACTIVE and inside its window; no open attempt for
// the pair; no submitted attempt unless the template allows retakes.
func (s *SessionService) Begin(ctx context.Context, studentID int, templateID uuid.UUID) (*model.ExamAttempt, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAvailable
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	now := s.now()
	if template.Status != model.TemplateStatusActive || !template.WindowOpen(now) {
		return nil, ErrNotAvailable
	}

	if _, err := s.attempts.GetActive(ctx, templateID, studentID); err == nil {
		return nil, ErrAttemptInProgress
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check active attempt: %w", err)
	}

	submitted, err := s.attempts.HasSubmitted(ctx, templateID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check submitted attempt: %w", err)
	}
	if submitted && !template.RetakeAllowed {
		return nil, ErrAlreadyAttempted
	}

	questions, err := s.questions.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNotAvailable
	}

	answers := make([]model.AnswerRecord, len(questions))
	for i, q := range questions {
		answers[i] = model.AnswerRecord{QuestionID: q.ID}
	}

	attempt := &model.ExamAttempt{
		ID:            uuid.New(),
		TemplateID:    templateID,
		StudentID:     studentID,
		Status:        model.AttemptStatusInProgress,
		StartedAt:     now,
		TimeRemaining: template.DurationMinutes * 60,
		Answers:       answers,
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	if err := s.templates.IncrementAssigned(ctx, templateID); err != nil {
		s.log.Warn().Err(err).Str("template_id", templateID.String()).Msg("Assigned counter update failed")
	}

	la := &liveAttempt{
		attempt:   attempt,
		questions: questions,
		passing:   template.PassingPercent,
		lastFocus: now,
		stop:      make(chan struct{}),
	}
	s.mu.Lock()
	s.live[attempt.ID] = la
	s.mu.Unlock()

	if s.tickInterval > 0 {
		go s.runCountdown(attempt.ID, la.stop)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("template_id", templateID.String()).
		Int("student_id", studentID).
		Msg("Attempt started")

	return snapshot(attempt), nil
}

// SelectAnswer records (or overwrites) the student's answer for a question,
// after flushing elapsed time onto the previously focused question.
func (s *SessionService) SelectAnswer(ctx context.Context, attemptID uuid.UUID, studentID, questionIndex, optionIndex int) error {
	la, err := s.getLive(ctx, attemptID)
	if err != nil {
		return err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	if la.attempt.StudentID != studentID {
		return ErrAttemptNotFound
	}
	if la.attempt.Status != model.AttemptStatusInProgress {
		return ErrInvalidState
	}
	if questionIndex < 0 || questionIndex >= len(la.attempt.Answers) ||
		optionIndex < 0 || optionIndex >= model.OptionCount {
		return ErrOutOfRange
	}

	la.flushFocus(s.now())
	la.attempt.CurrentIndex = questionIndex
	selected := optionIndex
	la.attempt.Answers[questionIndex].Selected = &selected

	s.saveProgress(ctx, la.attempt)
	return nil
}

// ToggleMark flips the marked-for-review flag of a question. The flag is a
// student-facing affordance only; it never affects scoring.
func (s *SessionService) ToggleMark(ctx context.Context, attemptID uuid.UUID, studentID, questionIndex int) error {
	la, err := s.getLive(ctx, attemptID)
	if err != nil {
		return err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	if la.attempt.StudentID != studentID {
		return ErrAttemptNotFound
	}
	if la.attempt.Status != model.AttemptStatusInProgress {
		return ErrInvalidState
	}
	if questionIndex < 0 || questionIndex >= len(la.attempt.Answers) {
		return ErrOutOfRange
	}

	la.attempt.Answers[questionIndex].Marked = !la.attempt.Answers[questionIndex].Marked
	s.saveProgress(ctx, la.attempt)
	return nil
}

// Navigate moves the current-question pointer, flushing time accounting for
// the question being left. Leaving a question never erases its answer.
func (s *SessionService) Navigate(ctx context.Context, attemptID uuid.UUID, studentID, questionIndex int) error {
	la, err := s.getLive(ctx, attemptID)
	if err != nil {
		return err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	if la.attempt.StudentID != studentID {
		return ErrAttemptNotFound
	}
	if la.attempt.Status != model.AttemptStatusInProgress {
		return ErrInvalidState
	}
	if questionIndex < 0 || questionIndex >= len(la.attempt.Answers) {
		return ErrOutOfRange
	}

	la.flushFocus(s.now())
	la.attempt.CurrentIndex = questionIndex

	s.saveProgress(ctx, la.attempt)
	return nil
}

// Tick decrements the attempt's time-remaining by one second, clamping at
// zero. Reaching zero auto-submits exactly once. Ticks against a terminal
// attempt are discarded, so duplicate or late delivery is harmless.
func (s *SessionService) Tick(ctx context.Context, attemptID uuid.UUID) error {
	la, err := s.getLive(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			return nil // already terminal
		}
		return err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	if la.attempt.Status != model.AttemptStatusInProgress {
		return nil
	}
	if la.attempt.TimeRemaining > 0 {
		la.attempt.TimeRemaining--
	}
	if la.attempt.TimeRemaining == 0 {
		s.finalizeLocked(ctx, la)
	}
	return nil
}

// Submit performs explicit submission. Submitting an already-submitted
// attempt is a no-op that returns the previously computed report, so client
// retries can never double-score.
func (s *SessionService) Submit(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.ScoreReport, error) {
	la, err := s.getLive(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Terminal and no longer live: serve the stored report.
			return s.storedReport(ctx, attemptID, studentID)
		}
		return nil, err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	if la.attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	if la.attempt.Status == model.AttemptStatusSubmitted {
		return la.report, nil
	}

	s.finalizeLocked(ctx, la)
	return la.report, nil
}

// Report returns the score report of a submitted attempt.
func (s *SessionService) Report(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.ScoreReport, error) {
	s.mu.RLock()
	la, ok := s.live[attemptID]
	s.mu.RUnlock()

	if ok {
		la.mu.Lock()
		defer la.mu.Unlock()
		if la.attempt.StudentID != studentID {
			return nil, ErrAttemptNotFound
		}
		if la.attempt.Status != model.AttemptStatusSubmitted {
			return nil, ErrInvalidState
		}
		return la.report, nil
	}

	return s.storedReport(ctx, attemptID, studentID)
}

// State returns a snapshot of the student's attempt against the template,
// resuming it into the live registry if this process has not seen it yet
// (page reload or restart).
func (s *SessionService) State(ctx context.Context, studentID int, templateID uuid.UUID) (*model.ExamAttempt, error) {
	attempt, err := s.attempts.GetActive(ctx, templateID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	la, err := s.resume(ctx, attempt)
	if err != nil {
		return nil, err
	}

	la.mu.Lock()
	defer la.mu.Unlock()
	return snapshot(la.attempt), nil
}

// Snapshot returns the current state of an attempt by ID, regardless of
// whether it is live or terminal. Used by the attempt stream.
func (s *SessionService) Snapshot(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	la, err := s.getLive(ctx, attemptID)
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		attempt, err := s.attempts.GetByID(ctx, attemptID)
		if err != nil {
			return nil, ErrAttemptNotFound
		}
		if attempt.StudentID != studentID {
			return nil, ErrAttemptNotFound
		}
		return attempt, nil
	}

	la.mu.Lock()
	defer la.mu.Unlock()
	if la.attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	return snapshot(la.attempt), nil
}

// Rehydrate reloads every in-progress attempt into the live registry and
// restarts its countdown. Called once on startup; attempts whose time has
// fully elapsed while the process was down are auto-submitted immediately.
func (s *SessionService) Rehydrate(ctx context.Context) error {
	attempts, err := s.attempts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active attempts: %w", err)
	}

	for i := range attempts {
		if _, err := s.resume(ctx, &attempts[i]); err != nil {
			s.log.Warn().Err(err).
				Str("attempt_id", attempts[i].ID.String()).
				Msg("Failed to rehydrate attempt")
		}
	}

	s.log.Info().Int("attempts", len(attempts)).Msg("Session engine rehydrated")
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internal
// ────────────────────────────────────────────────────────────────────────────

// getLive returns the live entry for an attempt, loading it from storage on
// a registry miss. Terminal attempts that are not live yield ErrInvalidState.
func (s *SessionService) getLive(ctx context.Context, attemptID uuid.UUID) (*liveAttempt, error) {
	s.mu.RLock()
	la, ok := s.live[attemptID]
	s.mu.RUnlock()
	if ok {
		return la, nil
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrInvalidState
	}

	return s.resume(ctx, attempt)
}

// resume registers a stored in-progress attempt as live, recomputing
// time-remaining from the wall clock so a client cannot stretch its window
// by going away. Races between concurrent resumes collapse onto whichever
// entry registered first.
func (s *SessionService) resume(ctx context.Context, attempt *model.ExamAttempt) (*liveAttempt, error) {
	s.mu.Lock()
	if existing, ok := s.live[attempt.ID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	template, err := s.templates.GetByID(ctx, attempt.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	questions, err := s.questions.ListByTemplate(ctx, attempt.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	now := s.now()
	remaining := template.DurationMinutes*60 - int(now.Sub(attempt.StartedAt).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	// Time never increases: keep the smaller of stored and recomputed.
	if attempt.TimeRemaining < remaining {
		remaining = attempt.TimeRemaining
	}
	attempt.TimeRemaining = remaining

	la := &liveAttempt{
		attempt:   attempt,
		questions: questions,
		passing:   template.PassingPercent,
		lastFocus: now,
		stop:      make(chan struct{}),
	}

	s.mu.Lock()
	if existing, ok := s.live[attempt.ID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.live[attempt.ID] = la
	s.mu.Unlock()

	la.mu.Lock()
	defer la.mu.Unlock()
	if la.attempt.TimeRemaining == 0 {
		s.finalizeLocked(ctx, la)
		return la, nil
	}
	if s.tickInterval > 0 {
		go s.runCountdown(attempt.ID, la.stop)
	}
	return la, nil
}

// finalizeLocked performs the single terminal transition of an attempt.
// Caller holds la.mu; the InProgress check in every caller guarantees this
// body runs at most once per attempt.
func (s *SessionService) finalizeLocked(ctx context.Context, la *liveAttempt) {
	defer s.scheduleEvict(la.attempt.ID)

	now := s.now()
	la.flushFocus(now)

	la.attempt.Status = model.AttemptStatusSubmitted
	la.attempt.SubmittedAt = &now
	close(la.stop)

	la.report = scoring.Score(la.attempt, la.questions, la.passing)

	if err := s.attempts.MarkSubmitted(ctx, la.attempt); err != nil {
		s.log.Error().Err(err).
			Str("attempt_id", la.attempt.ID.String()).
			Msg("Failed to persist submission")
	}

	if s.reports != nil {
		if err := s.reports.EnqueueReport(ctx, la.report); err == nil {
			s.log.Info().
				Str("attempt_id", la.attempt.ID.String()).
				Int("score", la.report.TotalScore).
				Msg("Attempt submitted")
			return
		}
		s.log.Warn().
			Str("attempt_id", la.attempt.ID.String()).
			Msg("Report queue unavailable, persisting synchronously")
	}

	if err := s.attempts.SaveReport(ctx, la.report); err != nil {
		s.log.Error().Err(err).
			Str("attempt_id", la.attempt.ID.String()).
			Msg("Failed to persist report")
	}
	if err := s.templates.RecordCompletion(ctx, la.attempt.TemplateID, la.report.Percentage); err != nil {
		s.log.Warn().Err(err).
			Str("template_id", la.attempt.TemplateID.String()).
			Msg("Completion counter update failed")
	}
}

// scheduleEvict drops a terminal attempt from the live registry. The delay
// keeps the in-memory report available for submit retries while the report
// queue drains; later reads go through the stored report.
func (s *SessionService) scheduleEvict(attemptID uuid.UUID) {
	if s.evictDelay <= 0 {
		s.evict(attemptID)
		return
	}
	time.AfterFunc(s.evictDelay, func() { s.evict(attemptID) })
}

func (s *SessionService) evict(attemptID uuid.UUID) {
	s.mu.Lock()
	delete(s.live, attemptID)
	s.mu.Unlock()
}

func (s *SessionService) storedReport(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.ScoreReport, error) {
	report, err := s.attempts.GetReport(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	return report, nil
}

func (s *SessionService) saveProgress(ctx context.Context, attempt *model.ExamAttempt) {
	if err := s.attempts.SaveProgress(ctx, attempt); err != nil {
		s.log.Warn().Err(err).
			Str("attempt_id", attempt.ID.String()).
			Msg("Progress autosave failed")
	}
}

// runCountdown drives the server-authoritative clock for one attempt until
// it reaches a terminal state.
func (s *SessionService) runCountdown(attemptID uuid.UUID, stop chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Tick(context.Background(), attemptID); err != nil {
				s.log.Warn().Err(err).
					Str("attempt_id", attemptID.String()).
					Msg("Countdown tick failed")
				return
			}
		}
	}
}

// flushFocus folds the time spent on the currently focused question into its
// record. Caller holds la.mu.
func (la *liveAttempt) flushFocus(now time.Time) {
	if la.attempt.CurrentIndex >= 0 && la.attempt.CurrentIndex < len(la.attempt.Answers) {
		elapsed := int(now.Sub(la.lastFocus).Seconds())
		if elapsed > 0 {
			la.attempt.Answers[la.attempt.CurrentIndex].TimeSpentSeconds += elapsed
		}
	}
	la.lastFocus = now
}

// snapshot copies an attempt so callers never observe concurrent mutation.
func snapshot(a *model.ExamAttempt) *model.ExamAttempt {
	out := *a
	out.Answers = make([]model.AnswerRecord, len(a.Answers))
	copy(out.Answers, a.Answers)
	return &out
}
