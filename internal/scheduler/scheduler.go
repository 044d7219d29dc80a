// Package scheduler owns the background work of the game: join-window
// timers, match runners, the housekeeping pass, random AI matches and the
// world-event sweep. Every goroutine it starts is tracked and joined by Stop.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mroshb/battle_forge/internal/match"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	SettleDelay        time.Duration
	Housekeeping       time.Duration
	WorldEventInterval time.Duration
	RandomMatchMin     time.Duration
	RandomMatchMax     time.Duration
}

type Option func(*Scheduler)

// WithSleeper replaces the wait used for the settle delay and the random
// match interval.
func WithSleeper(s match.Sleeper) Option {
	return func(sc *Scheduler) { sc.sleep = s }
}

func WithDice(d *dice.Dice) Option {
	return func(sc *Scheduler) { sc.dice = d }
}

type Scheduler struct {
	engine  *match.Engine
	economy *services.EconomyService
	war     *services.WarService
	teams   *services.TeamService
	cfg     Config
	dice    *dice.Dice
	sleep   match.Sleeper

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu      sync.Mutex
	stopped bool
	timers  map[uint]*time.Timer
	runners map[uint]struct{}
	chats   map[int64]struct{}
}

func New(engine *match.Engine, economy *services.EconomyService, war *services.WarService, teams *services.TeamService, cfg Config, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		engine:  engine,
		economy: economy,
		war:     war,
		teams:   teams,
		cfg:     cfg,
		dice:    dice.New(),
		sleep:   match.ContextSleep,
		ctx:     ctx,
		cancel:  cancel,
		timers:  make(map[uint]*time.Timer),
		runners: make(map[uint]struct{}),
		chats:   make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resumes the matches left open by a previous process and starts the
// periodic jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.ResumeAll(ctx); err != nil {
		return err
	}
	if s.cfg.Housekeeping > 0 {
		s.every(s.cfg.Housekeeping, func(ctx context.Context) {
			if err := s.Tick(ctx); err != nil {
				logger.Error("Housekeeping failed", "error", err)
			}
		})
	}
	if s.cfg.WorldEventInterval > 0 {
		s.every(s.cfg.WorldEventInterval, s.sweepWorldEvents)
	}
	logger.Info("Scheduler started",
		"housekeeping", s.cfg.Housekeeping,
		"world_events", s.cfg.WorldEventInterval,
		"settle_delay", s.cfg.SettleDelay)
	return nil
}

// Stop cancels every job and waits for running matches to return. Matches
// interrupted here stay running and are abandoned on the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	if err := s.group.Wait(); err != nil {
		logger.Warn("Scheduler stopped with error", "error", err)
	}
	logger.Info("Scheduler stopped")
}

// launch runs fn on the scheduler's group. It is a no-op after Stop.
func (s *Scheduler) launch(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.group.Go(func() error {
		fn(s.ctx)
		return nil
	})
	return true
}

func (s *Scheduler) every(interval time.Duration, fn func(ctx context.Context)) {
	s.launch(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	})
}

// ProposeMatch opens a match and arms its join window
func (s *Scheduler) ProposeMatch(ctx context.Context, d match.Discipline, creatorTeamID uint, capacity int, chatID int64) (*models.Match, error) {
	m, err := s.engine.Propose(ctx, d, creatorTeamID, capacity, chatID)
	if err != nil {
		return nil, err
	}
	s.armJoinWindow(m.ID, s.engine.JoinWindow())
	return m, nil
}

// JoinMatch adds a team and, once the roster fills, schedules the match to
// start after the settle delay.
func (s *Scheduler) JoinMatch(ctx context.Context, matchID uint, teamID uint) (match.JoinOutcome, error) {
	outcome, _, err := s.engine.Join(ctx, matchID, teamID)
	if err != nil {
		return outcome, err
	}
	if outcome == match.JoinStarting {
		s.disarm(matchID)
		s.startRun(matchID, s.cfg.SettleDelay)
	}
	return outcome, nil
}

// CancelMatch cancels a recruiting match on request
func (s *Scheduler) CancelMatch(ctx context.Context, matchID uint) (bool, error) {
	cancelled, _, err := s.engine.Cancel(ctx, matchID)
	if err != nil {
		return false, err
	}
	if cancelled {
		s.disarm(matchID)
	}
	return cancelled, nil
}

func (s *Scheduler) armJoinWindow(matchID uint, after time.Duration) {
	if after < 0 {
		after = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[matchID]; ok {
		t.Stop()
	}
	s.timers[matchID] = time.AfterFunc(after, func() {
		s.launch(func(ctx context.Context) {
			s.disarm(matchID)
			s.expire(ctx, matchID)
		})
	})
}

func (s *Scheduler) disarm(matchID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[matchID]; ok {
		t.Stop()
		delete(s.timers, matchID)
	}
}

func (s *Scheduler) armed(matchID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[matchID]
	return ok
}

func (s *Scheduler) expire(ctx context.Context, matchID uint) {
	outcome, err := s.engine.ExpireJoinWindow(ctx, matchID)
	if err != nil {
		logger.Error("Failed to close join window", "match_id", matchID, "error", err)
		return
	}
	if outcome == match.ExpireStarting {
		s.startRun(matchID, s.cfg.SettleDelay)
	}
}

// startRun plays the match after delay unless a runner already owns it
func (s *Scheduler) startRun(matchID uint, delay time.Duration) {
	s.mu.Lock()
	if _, ok := s.runners[matchID]; ok || s.stopped {
		s.mu.Unlock()
		return
	}
	s.runners[matchID] = struct{}{}
	s.mu.Unlock()

	launched := s.launch(func(ctx context.Context) {
		defer s.release(matchID)
		if err := s.sleep(ctx, delay); err != nil {
			return
		}
		if _, err := s.engine.Run(ctx, matchID); err != nil {
			logger.Error("Match run failed", "match_id", matchID, "error", err)
		}
	})
	if !launched {
		s.release(matchID)
	}
}

func (s *Scheduler) release(matchID uint) {
	s.mu.Lock()
	delete(s.runners, matchID)
	s.mu.Unlock()
}

// Tick expires overdue join windows and starts matches that are waiting
// for a runner. It recovers from timers lost to a restart.
func (s *Scheduler) Tick(ctx context.Context) error {
	overdue, err := s.engine.Overdue(ctx)
	if err != nil {
		return err
	}
	for _, m := range overdue {
		if s.armed(m.ID) {
			continue
		}
		s.expire(ctx, m.ID)
	}

	starting, err := s.engine.Starting(ctx)
	if err != nil {
		return err
	}
	for _, m := range starting {
		s.startRun(m.ID, 0)
	}
	return nil
}

// ResumeAll applies Resume to every open match and re-arms what is left
func (s *Scheduler) ResumeAll(ctx context.Context) error {
	open, err := s.engine.Open(ctx)
	if err != nil {
		return err
	}

	counts := map[match.ResumeAction]int{}
	for _, m := range open {
		action, err := s.engine.Resume(ctx, m.ID)
		if err != nil {
			logger.Error("Failed to resume match", "match_id", m.ID, "error", err)
			continue
		}
		counts[action]++
		switch action {
		case match.ResumeRun:
			s.startRun(m.ID, 0)
		case match.ResumeWait:
			s.armJoinWindow(m.ID, time.Until(m.JoinDeadline))
		}
	}

	logger.Info("Open matches resumed",
		"total", len(open),
		"started", counts[match.ResumeRun],
		"waiting", counts[match.ResumeWait],
		"cancelled", counts[match.ResumeCancelled],
		"abandoned", counts[match.ResumeAbandoned])
	return nil
}

func (s *Scheduler) RunEconomyStep(ctx context.Context, playerID int64) (*services.StepReport, error) {
	return s.economy.RunEconomyStep(ctx, playerID)
}

func (s *Scheduler) ResolveWar(ctx context.Context, attackerID, defenderID int64, n int) (*services.WarResult, error) {
	return s.war.Resolve(ctx, attackerID, defenderID, n)
}

// RegisterChat starts the random AI match job for a chat. Registering the
// same chat twice is a no-op.
func (s *Scheduler) RegisterChat(chatID int64) bool {
	s.mu.Lock()
	if _, ok := s.chats[chatID]; ok || s.stopped {
		s.mu.Unlock()
		return false
	}
	s.chats[chatID] = struct{}{}
	s.mu.Unlock()

	logger.Info("Random matches enabled", "chat_id", chatID)
	return s.launch(func(ctx context.Context) {
		for {
			if err := s.sleep(ctx, s.nextRandomMatch()); err != nil {
				return
			}
			if _, err := s.RandomMatch(ctx, chatID); err != nil {
				logger.Warn("Random match skipped", "chat_id", chatID, "error", err)
			}
		}
	})
}

func (s *Scheduler) nextRandomMatch() time.Duration {
	lo, hi := s.cfg.RandomMatchMin, s.cfg.RandomMatchMax
	if hi <= lo {
		return lo
	}
	return time.Duration(s.dice.Uniform(float64(lo), float64(hi)))
}

// RandomMatch proposes a match between AI teams in a random discipline. The
// first drawn team joins at once and the rest of the roster is open to
// anyone during the join window.
func (s *Scheduler) RandomMatch(ctx context.Context, chatID int64) (*models.Match, error) {
	teams, err := s.teams.ListAI(ctx)
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, fmt.Errorf("need at least two AI teams, have %d", len(teams))
	}

	d := match.Disciplines[s.dice.Pick(len(match.Disciplines))]
	lo, hi := d.CapacityRange()
	capacity := s.dice.IntRange(lo, hi)
	creator := teams[s.dice.Pick(len(teams))]

	m, err := s.ProposeMatch(ctx, d, creator.ID, capacity, chatID)
	if err != nil {
		return nil, err
	}
	s.engine.Notify(ctx, chatID, fmt.Sprintf(
		"A random %s match is open for %d teams! %s is in. Join with /acceptsport %d within %s.",
		d.Title(), capacity, creator.Name, m.ID, s.engine.JoinWindow()))
	return m, nil
}

func (s *Scheduler) sweepWorldEvents(ctx context.Context) {
	results, err := s.economy.RunWorldEvents(ctx)
	if err != nil {
		logger.Error("World event sweep failed", "error", err)
		return
	}
	for _, r := range results {
		s.engine.Notify(ctx, r.PlayerID, WorldEventText(r))
	}
}

// WorldEventText renders a world event for the affected player
func WorldEventText(r services.WorldEventResult) string {
	if r.Kind == services.EventPlague {
		return fmt.Sprintf("A plague struck your lands: %d of your people died.", r.Culled)
	}
	parts := make([]string, 0, len(models.BaseResources))
	for _, res := range models.BaseResources {
		if n := r.Gained[res]; n > 0 {
			parts = append(parts, fmt.Sprintf("+%d %s", n, res))
		}
	}
	return "An economic boom! Your stores grew: " + strings.Join(parts, ", ")
}
