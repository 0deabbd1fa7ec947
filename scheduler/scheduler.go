package scheduler

import (
	"context"
	"fmt"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/robfig/cron/v3"

	"pulsecheck/checkin"
	"pulsecheck/db"
	"pulsecheck/timeutil"
)

// Scheduler periodically evaluates every active user against the workspace
// schedule in the user's own timezone and fires check-in launches and
// reminders. A single instance is assumed; evaluation runs on one worker so
// reminder claims are naturally serialized.
type Scheduler struct {
	store       *db.Store
	engine      *checkin.Engine
	sessions    *checkin.SessionStore
	messenger   checkin.Messenger
	workspaceID string

	tickInterval   time.Duration
	tolerance      time.Duration
	maxSessionIdle time.Duration

	log log15.Logger
	now func() time.Time
}

func New(store *db.Store, engine *checkin.Engine, sessions *checkin.SessionStore, messenger checkin.Messenger, workspaceID string, tickInterval, maxSessionIdle time.Duration, logger log15.Logger) *Scheduler {
	return &Scheduler{
		store:          store,
		engine:         engine,
		sessions:       sessions,
		messenger:      messenger,
		workspaceID:    workspaceID,
		tickInterval:   tickInterval,
		tolerance:      timeutil.Tolerance,
		maxSessionIdle: maxSessionIdle,
		log:            logger,
		now:            time.Now,
	}
}

// SetClock overrides the scheduler's time source. Tests only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run drives the tick loop until ctx is cancelled. The weekly rotation
// advance runs as a cron job (Sunday midnight) independent of the per-user
// ticks.
func (s *Scheduler) Run(ctx context.Context) {
	c := cron.New()
	_, err := c.AddFunc("0 0 * * 0", func() {
		if err := s.store.AdvanceRotation(s.workspaceID); err != nil {
			s.log.Error("failed to advance question rotation", "err", err)
			return
		}
		s.log.Info("advanced question rotation", "workspace_id", s.workspaceID)
	})
	if err != nil {
		s.log.Error("failed to schedule rotation job", "err", err)
	}
	c.Start()
	defer c.Stop()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started", "tick_interval", s.tickInterval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case t := <-ticker.C:
			if err := s.RunTick(ctx, t); err != nil {
				s.log.Error("tick aborted", "err", err)
			}
		}
	}
}

// RunTick performs one evaluation pass. A workspace-config or user-list load
// failure aborts the whole tick (retried next tick); per-user failures are
// logged and skipped.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) error {
	cfg, err := s.store.GetOrCreateWorkspaceConfig(s.workspaceID)
	if err != nil {
		return err
	}
	checkInDay, err := timeutil.ParseWeekday(cfg.CheckInDay)
	if err != nil {
		return fmt.Errorf("workspace %s has invalid check-in day: %w", s.workspaceID, err)
	}
	users, err := s.store.ListActiveUsers()
	if err != nil {
		return err
	}

	if pruned := s.sessions.PruneIdle(s.maxSessionIdle, now); pruned > 0 {
		s.log.Info("pruned idle sessions", "count", pruned)
	}

	for _, user := range users {
		if err := s.evaluateUser(ctx, cfg, checkInDay, user, now); err != nil {
			s.log.Error("failed to evaluate user",
				"slack_user_id", user.SlackUserID, "err", err)
		}
	}
	return nil
}

func (s *Scheduler) evaluateUser(ctx context.Context, cfg *db.WorkspaceConfig, checkInDay time.Weekday, user db.User, now time.Time) error {
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", user.Timezone, err)
	}

	if timeutil.MatchesWeekday(now, checkInDay, loc) &&
		timeutil.MatchesClock(now, cfg.CheckInTime, loc, s.tolerance) {
		return s.maybeLaunch(ctx, user, now, loc)
	}

	if timeutil.MatchesWeekday(now, timeutil.NextWeekday(checkInDay), loc) {
		return s.maybeRemind(ctx, cfg, user, now, loc)
	}
	return nil
}

// maybeLaunch fires the check-in unless this week's record is already
// completed. Launch itself re-checks completion and in-flight sessions, so a
// re-fire inside the tolerance window degrades to a no-op.
func (s *Scheduler) maybeLaunch(ctx context.Context, user db.User, now time.Time, loc *time.Location) error {
	weekStart := timeutil.WeekStart(now.In(loc))
	checkIn, err := s.store.FindCheckIn(user.ID, weekStart)
	if err != nil {
		return err
	}
	if checkIn.Completed() {
		return nil
	}

	result, err := s.engine.Launch(ctx, user.SlackUserID, s.workspaceID)
	if err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}
	if !result.AlreadyCompleted && !result.InProgress {
		s.log.Info("sent check-in", "slack_user_id", user.SlackUserID, "check_in_id", result.CheckInID)
	}
	return nil
}

// maybeRemind walks the configured reminder slots in order and sends at most
// one reminder: the first slot whose time matches and whose claim against
// the check-in row wins.
func (s *Scheduler) maybeRemind(ctx context.Context, cfg *db.WorkspaceConfig, user db.User, now time.Time, loc *time.Location) error {
	weekStart := timeutil.WeekStart(now.In(loc))
	checkIn, err := s.store.FindCheckIn(user.ID, weekStart)
	if err != nil {
		return err
	}
	if checkIn == nil || checkIn.Completed() {
		return nil
	}

	reminderTimes := []string(cfg.ReminderTimes)
	for slot, at := range reminderTimes {
		if !timeutil.MatchesClock(now, at, loc, s.tolerance) {
			continue
		}
		claimed, err := s.store.ClaimReminderSlot(checkIn.ID, slot)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}

		// The claim is already recorded; a delivery failure costs this
		// slot's reminder rather than risking a double send.
		msg := reminderMessage(slot, len(reminderTimes))
		if err := s.messenger.SendPlainMessage(ctx, user.SlackUserID, msg); err != nil {
			s.log.Error("failed to send reminder",
				"slack_user_id", user.SlackUserID, "slot", slot, "err", err)
			return nil
		}
		s.log.Info("sent reminder", "slack_user_id", user.SlackUserID, "slot", slot)
		return nil
	}
	return nil
}

func reminderMessage(slot, total int) string {
	if slot == total-1 {
		return "⏰ *Final Reminder*\n\nYour weekly pulse check-in is due today! It only takes 2 minutes.\n\nPlease complete it when you get a chance."
	}
	return "🔔 *Friendly Reminder*\n\nJust a quick reminder to complete your weekly pulse check-in if you haven't already!\n\nIt only takes a couple of minutes."
}
