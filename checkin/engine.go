package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log15 "github.com/inconshreveable/log15/v3"

	"pulsecheck/db"
	"pulsecheck/timeutil"
)

// ErrMissingCoreQuestion means the catalog has no active question for a core
// role. This is a configuration error an administrator must fix; launches
// fail until then.
var ErrMissingCoreQuestion = errors.New("missing required core question")

// fallbackRotatingPrompt is asked at the final step when the rotating queue
// is empty. Its answer is not persisted because there is no question row to
// attach it to.
const fallbackRotatingPrompt = "What can we do to support you better?"

// Messenger delivers survey prompts and plain messages to a chat user.
// Delivery failures are recoverable: the engine logs them and keeps the
// session at its last recorded step.
type Messenger interface {
	SendQuestionPrompt(ctx context.Context, slackUserID, role, text string, choices []string) error
	SendPlainMessage(ctx context.Context, slackUserID, text string) error
}

// Profile is the minimal chat-platform user info needed to create a User
// record lazily.
type Profile struct {
	Username string
	Email    string
	Timezone string
}

// Directory resolves chat-platform profiles for users we have not seen yet.
type Directory interface {
	FetchProfile(ctx context.Context, slackUserID string) (Profile, error)
}

// LaunchResult reports what a launch attempt did. AlreadyCompleted and
// InProgress are the two idempotency outcomes: the week's check-in is done,
// or a survey is already mid-flight for this user.
type LaunchResult struct {
	CheckInID        uint
	AlreadyCompleted bool
	InProgress       bool
}

// Engine drives the conversational check-in state machine. All session
// mutations are serialized by mu so concurrent inbound messages from the
// same user cannot interleave a step.
type Engine struct {
	mu        sync.Mutex
	store     *db.Store
	sessions  *SessionStore
	messenger Messenger
	directory Directory
	log       log15.Logger
	now       func() time.Time
}

func NewEngine(store *db.Store, sessions *SessionStore, messenger Messenger, directory Directory, logger log15.Logger) *Engine {
	return &Engine{
		store:     store,
		sessions:  sessions,
		messenger: messenger,
		directory: directory,
		log:       logger,
		now:       time.Now,
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Launch starts a check-in conversation for a user. It is idempotent: a
// completed check-in for the current week or a survey already in flight
// results in a no-op with the corresponding flag set. A missing core
// question fails the launch outright.
func (e *Engine) Launch(ctx context.Context, slackUserID, workspaceID string) (LaunchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.sessions.Get(slackUserID); ok {
		e.log.Info("launch skipped, session already in progress",
			"slack_user_id", slackUserID, "step", existing.Step.String())
		return LaunchResult{CheckInID: existing.CheckInID, InProgress: true}, nil
	}

	user, err := e.resolveUser(ctx, slackUserID)
	if err != nil {
		return LaunchResult{}, err
	}

	weekStart := timeutil.WeekStart(e.localNow(user))
	checkIn, err := e.store.FindCheckIn(user.ID, weekStart)
	if err != nil {
		return LaunchResult{}, err
	}
	if checkIn.Completed() {
		e.log.Info("launch skipped, check-in already completed",
			"slack_user_id", slackUserID, "check_in_id", checkIn.ID)
		return LaunchResult{CheckInID: checkIn.ID, AlreadyCompleted: true}, nil
	}
	if checkIn == nil {
		checkIn, err = e.store.UpsertCheckIn(user.ID, weekStart)
		if err != nil {
			return LaunchResult{}, err
		}
	}

	rating, err := e.coreQuestion(db.RoleRating)
	if err != nil {
		return LaunchResult{}, err
	}
	wentWell, err := e.coreQuestion(db.RoleWentWell)
	if err != nil {
		return LaunchResult{}, err
	}
	didntGoWell, err := e.coreQuestion(db.RoleDidntGoWell)
	if err != nil {
		return LaunchResult{}, err
	}

	cfg, err := e.store.GetOrCreateWorkspaceConfig(workspaceID)
	if err != nil {
		return LaunchResult{}, err
	}
	rotating, err := e.store.GetRotatingQuestionAtOffset(cfg.QuestionIndex)
	if err != nil {
		return LaunchResult{}, err
	}

	now := e.now()
	e.sessions.Put(slackUserID, &Session{
		CheckInID:           checkIn.ID,
		UserID:              user.ID,
		Step:                StepRating,
		RatingQuestion:      rating,
		WentWellQuestion:    wentWell,
		DidntGoWellQuestion: didntGoWell,
		RotatingQuestion:    rotating,
		StartedAt:           now,
		LastActivity:        now,
	})

	err = e.messenger.SendQuestionPrompt(ctx, slackUserID, db.RoleRating,
		rating.QuestionText, []string{"1", "2", "3", "4", "5"})
	if err != nil {
		// Session stays; the user can still be reached on the next attempt.
		e.log.Error("failed to send rating prompt", "slack_user_id", slackUserID, "err", err)
	}

	e.log.Info("check-in launched", "slack_user_id", slackUserID, "check_in_id", checkIn.ID)
	return LaunchResult{CheckInID: checkIn.ID}, nil
}

// HandleRating records the fixed-choice rating answer and advances to the
// went_well step. Ratings arriving with no session, or out of step order,
// are ignored as stale interactions.
func (e *Engine) HandleRating(ctx context.Context, slackUserID string, value int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions.Get(slackUserID)
	if !ok || sess.Step != StepRating {
		return nil
	}
	if value < 1 || value > 5 {
		return fmt.Errorf("rating %d out of range 1-5", value)
	}

	sess.Rating = value
	sess.Step = StepWentWell
	sess.LastActivity = e.now()

	err := e.messenger.SendQuestionPrompt(ctx, slackUserID, db.RoleWentWell,
		sess.WentWellQuestion.QuestionText, nil)
	if err != nil {
		e.log.Error("failed to send went_well prompt", "slack_user_id", slackUserID, "err", err)
	}
	return nil
}

// HandleText correlates a free-text message to the session's current step.
// Messages from users with no active session are ordinary chat traffic and
// are ignored. The final step performs the completion write-through and
// removes the session.
func (e *Engine) HandleText(ctx context.Context, slackUserID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions.Get(slackUserID)
	if !ok {
		return nil
	}
	sess.LastActivity = e.now()

	switch sess.Step {
	case StepRating:
		// Waiting on the button selection; free text here is not an answer.
		return nil

	case StepWentWell:
		sess.WentWell = text
		sess.Step = StepDidntGoWell
		err := e.messenger.SendQuestionPrompt(ctx, slackUserID, db.RoleDidntGoWell,
			sess.DidntGoWellQuestion.QuestionText, nil)
		if err != nil {
			e.log.Error("failed to send didnt_go_well prompt", "slack_user_id", slackUserID, "err", err)
		}
		return nil

	case StepDidntGoWell:
		sess.DidntGoWell = text
		sess.Step = StepRotating
		prompt := fallbackRotatingPrompt
		if sess.RotatingQuestion != nil {
			prompt = sess.RotatingQuestion.QuestionText
		}
		err := e.messenger.SendQuestionPrompt(ctx, slackUserID, db.RoleRotating, prompt, nil)
		if err != nil {
			e.log.Error("failed to send rotating prompt", "slack_user_id", slackUserID, "err", err)
		}
		return nil

	case StepRotating:
		return e.complete(ctx, slackUserID, sess, text)

	default:
		return fmt.Errorf("session for %s in unknown step %d", slackUserID, sess.Step)
	}
}

// complete writes the finished check-in through to the store and terminates
// the session. A store failure keeps the session so the user's final answer
// can be retried.
func (e *Engine) complete(ctx context.Context, slackUserID string, sess *Session, rotatingAnswer string) error {
	var rotatingID *uint
	if sess.RotatingQuestion != nil {
		rotatingID = &sess.RotatingQuestion.ID
	}

	err := e.store.CompleteCheckIn(sess.CheckInID, sess.Rating, sess.WentWell, sess.DidntGoWell, rotatingID, rotatingAnswer)
	if err != nil {
		e.log.Error("failed to save completed check-in",
			"slack_user_id", slackUserID, "check_in_id", sess.CheckInID, "err", err)
		if sendErr := e.messenger.SendPlainMessage(ctx, slackUserID,
			"Sorry, there was an error saving your responses. Please try sending that last answer again."); sendErr != nil {
			e.log.Error("failed to send save-error notice", "slack_user_id", slackUserID, "err", sendErr)
		}
		return err
	}

	e.sessions.Delete(slackUserID)

	err = e.messenger.SendPlainMessage(ctx, slackUserID,
		"✅ All done! Thanks for completing your weekly check-in. Have a great rest of your week!")
	if err != nil {
		e.log.Error("failed to send completion notice", "slack_user_id", slackUserID, "err", err)
	}

	e.log.Info("check-in completed", "slack_user_id", slackUserID, "check_in_id", sess.CheckInID)
	return nil
}

// resolveUser finds the internal user record, creating it from the chat
// platform's profile on first contact.
func (e *Engine) resolveUser(ctx context.Context, slackUserID string) (*db.User, error) {
	user, err := e.store.FindUserBySlackID(slackUserID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	profile, err := e.directory.FetchProfile(ctx, slackUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", slackUserID, err)
	}
	user = &db.User{
		SlackUserID:   slackUserID,
		SlackUsername: profile.Username,
		Email:         profile.Email,
		Timezone:      profile.Timezone,
	}
	if err := e.store.CreateUser(user); err != nil {
		return nil, err
	}
	e.log.Info("created user from slack profile", "slack_user_id", slackUserID, "username", profile.Username)
	return user, nil
}

// coreQuestion loads a core-role question, converting absence into the fatal
// configuration error.
func (e *Engine) coreQuestion(role string) (*db.Question, error) {
	q, err := e.store.GetCoreQuestionByRole(role)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingCoreQuestion, role)
	}
	return q, nil
}

// localNow is "now" in the user's timezone, falling back to UTC on an
// unloadable zone. Week keying follows the user's local calendar.
func (e *Engine) localNow(user *db.User) time.Time {
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return e.now().UTC()
	}
	return e.now().In(loc)
}
