package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/mroshb/battle_forge/pkg/logger"
	"github.com/mroshb/battle_forge/pkg/utils"
)

type JoinOutcome int

const (
	JoinJoined JoinOutcome = iota
	// JoinStarting means the team joined and filled the match
	JoinStarting
	JoinFull
	JoinClosed
	JoinAlreadyJoined
)

func (o JoinOutcome) String() string {
	switch o {
	case JoinJoined:
		return "joined"
	case JoinStarting:
		return "starting"
	case JoinFull:
		return "full"
	case JoinClosed:
		return "closed"
	case JoinAlreadyJoined:
		return "already_joined"
	}
	return "unknown"
}

type ExpireOutcome int

const (
	ExpireNoop ExpireOutcome = iota
	ExpireCancelled
	ExpireStarting
)

// ResumeAction tells the caller what to do with a match found after a restart.
type ResumeAction int

const (
	ResumeNone ResumeAction = iota
	ResumeRun
	ResumeWait
	ResumeCancelled
	ResumeAbandoned
)

func (a ResumeAction) String() string {
	switch a {
	case ResumeRun:
		return "run"
	case ResumeWait:
		return "wait"
	case ResumeCancelled:
		return "cancelled"
	case ResumeAbandoned:
		return "abandoned"
	default:
		return "none"
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep skips live pacing. Matches play out as fast as the store allows.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Settlement is what a finished match changed.
type Settlement struct {
	Match      *models.Match
	Winner     *models.Team
	Teams      []models.Team
	OwnerCoins map[int64]int64
	Wagers     []services.WagerResult
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

func WithDice(d *dice.Dice) Option {
	return func(e *Engine) { e.dice = d }
}

// Engine drives the persisted match lifecycle. Every transition is a
// conditional update on the stored phase, so concurrent callers and repeated
// calls never apply a transition twice.
type Engine struct {
	store      *repositories.Store
	wagers     *services.WagerService
	rules      config.MatchRules
	sink       Sink
	dice       *dice.Dice
	now        func() time.Time
	sleep      Sleeper
	joinWindow time.Duration
}

func NewEngine(store *repositories.Store, wagers *services.WagerService, tuning config.Tuning, sink Sink, joinWindow time.Duration, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		wagers:     wagers,
		rules:      tuning.Match,
		sink:       sink,
		dice:       dice.New(),
		now:        func() time.Time { return time.Now().UTC() },
		sleep:      ContextSleep,
		joinWindow: joinWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Get(ctx context.Context, matchID uint) (*models.Match, error) {
	return e.store.Matches.Get(ctx, matchID)
}

// Recruiting lists the matches a chat can still join
func (e *Engine) Recruiting(ctx context.Context, chatID int64) ([]models.Match, error) {
	return e.store.Matches.ListRecruitingByChat(ctx, chatID)
}

func (e *Engine) Open(ctx context.Context) ([]models.Match, error) {
	return e.store.Matches.ListOpen(ctx)
}

// Overdue lists recruiting matches whose join window has passed
func (e *Engine) Overdue(ctx context.Context) ([]models.Match, error) {
	return e.store.Matches.ListExpired(ctx, e.now())
}

func (e *Engine) Starting(ctx context.Context) ([]models.Match, error) {
	return e.store.Matches.ListByPhase(ctx, models.MatchPhaseStarting)
}

func (e *Engine) Recent(ctx context.Context, limit int) ([]models.Match, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.store.Matches.Recent(ctx, limit)
}

// Propose opens a match with the creator's team on the roster
func (e *Engine) Propose(ctx context.Context, d Discipline, creatorTeamID uint, capacity int, chatID int64) (*models.Match, error) {
	if err := d.ValidateCapacity(capacity); err != nil {
		return nil, err
	}
	if _, err := e.store.Teams.Get(ctx, creatorTeamID); err != nil {
		return nil, err
	}

	now := e.now()
	match := &models.Match{
		Discipline:   string(d),
		TeamIDs:      []uint{creatorTeamID},
		Capacity:     capacity,
		Status:       models.MatchStatusOpen,
		Phase:        models.MatchPhaseProposed,
		ChatID:       chatID,
		ScheduledAt:  now,
		JoinDeadline: now.Add(e.joinWindow),
	}
	if err := e.store.Matches.Create(ctx, match); err != nil {
		return nil, err
	}

	logger.Info("Match proposed", "match_id", match.ID, "discipline", d, "capacity", capacity, "chat_id", chatID)
	return match, nil
}

// Join adds a team to a recruiting match. The match starts once full.
func (e *Engine) Join(ctx context.Context, matchID uint, teamID uint) (JoinOutcome, *models.Match, error) {
	var outcome JoinOutcome
	var match *models.Match

	err := e.store.Transaction(ctx, func(tx *repositories.Store) error {
		m, err := tx.Matches.GetForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		match = m

		switch {
		case m.HasTeam(teamID):
			outcome = JoinAlreadyJoined
			return nil
		case m.Phase == models.MatchPhaseStarting:
			outcome = JoinFull
			return nil
		case !m.IsRecruiting():
			outcome = JoinClosed
			return nil
		case m.IsFull():
			outcome = JoinFull
			return nil
		}

		if _, err := tx.Teams.Get(ctx, teamID); err != nil {
			return err
		}
		m.TeamIDs = append(m.TeamIDs, teamID)
		m.Phase = models.MatchPhaseRecruiting
		outcome = JoinJoined
		if m.IsFull() {
			m.Phase = models.MatchPhaseStarting
			outcome = JoinStarting
		}

		ok, err := tx.Matches.SetRoster(ctx, m)
		if err != nil {
			return err
		}
		if !ok {
			outcome = JoinClosed
		}
		return nil
	})
	if err != nil {
		return JoinClosed, nil, err
	}

	logger.Debug("Match join", "match_id", matchID, "team_id", teamID, "outcome", outcome.String())
	return outcome, match, nil
}

func closedFields(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":    models.MatchStatusClosed,
		"closed_at": now,
	}
}

// Cancel closes a match that is still recruiting and forfeits its wagers.
// It reports false when the match already left recruiting.
func (e *Engine) Cancel(ctx context.Context, matchID uint) (bool, []services.WagerResult, error) {
	var cancelled bool
	var results []services.WagerResult
	err := e.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		cancelled, results, err = e.cancelTx(ctx, tx, matchID)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	if cancelled {
		logger.Info("Match cancelled", "match_id", matchID, "forfeited_wagers", len(results))
	}
	return cancelled, results, nil
}

func (e *Engine) cancelTx(ctx context.Context, tx *repositories.Store, matchID uint) (bool, []services.WagerResult, error) {
	ok, err := tx.Matches.Transition(ctx, matchID, models.RecruitingPhases, models.MatchPhaseCancelled, closedFields(e.now()))
	if err != nil || !ok {
		return false, nil, err
	}
	results, err := e.wagers.ForfeitTx(ctx, tx, matchID)
	if err != nil {
		return false, nil, err
	}
	return true, results, nil
}

// ExpireJoinWindow ends recruiting. With fewer than two teams the match is
// cancelled, otherwise it starts with the teams that joined.
func (e *Engine) ExpireJoinWindow(ctx context.Context, matchID uint) (ExpireOutcome, error) {
	outcome := ExpireNoop
	var chatID int64

	err := e.store.Transaction(ctx, func(tx *repositories.Store) error {
		m, err := tx.Matches.GetForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if !m.IsRecruiting() {
			return nil
		}
		chatID = m.ChatID

		if len(m.TeamIDs) < 2 {
			ok, _, err := e.cancelTx(ctx, tx, matchID)
			if ok {
				outcome = ExpireCancelled
			}
			return err
		}

		m.Phase = models.MatchPhaseStarting
		m.Capacity = len(m.TeamIDs)
		ok, err := tx.Matches.SetRoster(ctx, m)
		if ok {
			outcome = ExpireStarting
		}
		return err
	})
	if err != nil {
		return ExpireNoop, err
	}

	if outcome == ExpireCancelled {
		e.Notify(ctx, chatID, fmt.Sprintf("Match %d cancelled: not enough teams joined.", matchID))
	}
	return outcome, nil
}

// Run plays a starting match to the end and settles it. Only the caller
// that moves the match to running plays it; everyone else gets nil.
// A cancelled ctx leaves the match running for Resume to abandon.
func (e *Engine) Run(ctx context.Context, matchID uint) (*Settlement, error) {
	ok, err := e.store.Matches.Transition(ctx, matchID, []string{models.MatchPhaseStarting}, models.MatchPhaseRunning,
		map[string]interface{}{"started_at": e.now()})
	if err != nil || !ok {
		return nil, err
	}

	match, err := e.store.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	teams, err := e.store.Teams.ListByIDs(ctx, match.TeamIDs)
	if err != nil {
		return nil, err
	}
	d := Discipline(match.Discipline)
	sim, err := NewSimulator(d, participants(teams), e.dice)
	if err != nil {
		logger.Error("Match cannot be simulated", "match_id", matchID, "error", err)
		return nil, e.abandon(ctx, match, "invalid roster")
	}

	logger.Info("Match started", "match_id", matchID, "discipline", d, "teams", len(teams))
	f := newFeed(ctx, e.sink, match.ID, match.ChatID, match.LastNotificationID)
	f.Push(fmt.Sprintf("%s match started: %s!", d.Title(), strings.Join(teamNames(teams), ", ")))

	var timeline []string
	for !sim.Done() {
		if err := e.sleep(ctx, sim.Delay()); err != nil {
			f.Close()
			logger.Warn("Match interrupted", "match_id", matchID, "error", err)
			return nil, err
		}
		tick := sim.Step()
		timeline = append(timeline, tick.Text)
		f.Push(tick.Text)
		if err := e.store.Matches.SaveProgress(ctx, match.ID, tick.Standings, f.Handle()); err != nil {
			logger.Warn("Failed to save match progress", "match_id", matchID, "error", err)
		}
	}
	f.Close()
	match.LastNotificationID = f.Handle()

	settlement, err := e.settle(ctx, match, teams, sim.Result(), timeline)
	if err != nil || settlement == nil {
		return nil, err
	}
	e.announce(ctx, settlement)
	return settlement, nil
}

func participants(teams []models.Team) []Participant {
	out := make([]Participant, len(teams))
	for i, t := range teams {
		out[i] = Participant{TeamID: t.ID, Name: t.Name, Power: t.Power}
	}
	return out
}

func teamNames(teams []models.Team) []string {
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name
	}
	return names
}

// settle applies a finished match exactly once. It returns nil when the
// match was already settled.
func (e *Engine) settle(ctx context.Context, match *models.Match, teams []models.Team, result Result, timeline []string) (*Settlement, error) {
	summary := Summarize(Discipline(match.Discipline), result, timeline)
	now := e.now()

	var settlement *Settlement
	err := e.store.Transaction(ctx, func(tx *repositories.Store) error {
		fields := closedFields(now)
		fields["last_notification_id"] = match.LastNotificationID
		ok, err := tx.Matches.Transition(ctx, match.ID, []string{models.MatchPhaseRunning}, models.MatchPhaseSettled, fields)
		if err != nil || !ok {
			return err
		}

		match.Phase = models.MatchPhaseSettled
		match.Status = models.MatchStatusClosed
		match.ClosedAt = &now
		match.Standings = result.Standings
		match.WinnerTeamID = result.WinnerTeamID
		match.Summary = summary
		if err := tx.Matches.SaveResult(ctx, match); err != nil {
			return err
		}

		s := &Settlement{Match: match, OwnerCoins: map[int64]int64{}}
		for _, t := range teams {
			team, err := tx.Teams.GetForUpdate(ctx, t.ID)
			if err != nil {
				return err
			}
			won := result.WinnerTeamID != nil && *result.WinnerTeamID == team.ID
			if won {
				team.Wins++
				team.WinStreak++
				team.Power += e.rules.WinPowerGain
			} else {
				team.WinStreak = 0
			}
			if err := tx.Teams.Save(ctx, team); err != nil {
				return err
			}
			if won {
				s.Winner = team
			}
			s.Teams = append(s.Teams, *team)

			if team.OwnerID == nil {
				continue
			}
			delta, txType := e.ownerDelta(won, result.WinnerTeamID == nil)
			applied, err := tx.Coins.Adjust(ctx, *team.OwnerID, delta, true, txType, fmt.Sprintf("match %d", match.ID))
			if err != nil {
				return err
			}
			s.OwnerCoins[*team.OwnerID] += applied
		}

		s.Wagers, err = e.wagers.SettleTx(ctx, tx, match.ID, result.WinnerTeamID)
		if err != nil {
			return err
		}
		settlement = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settlement != nil {
		logger.Info("Match settled", "match_id", match.ID, "winner", result.WinnerTeamID, "wagers", len(settlement.Wagers))
	}
	return settlement, nil
}

func (e *Engine) ownerDelta(won, draw bool) (int64, string) {
	switch {
	case won:
		return e.rules.WinCoins, models.TxTypeMatchReward
	case draw:
		return e.rules.DrawCoins, models.TxTypeMatchReward
	}
	return -e.rules.LossCoins, models.TxTypeMatchPenalty
}

// announce posts the final summary and the wager results
func (e *Engine) announce(ctx context.Context, s *Settlement) {
	for _, chunk := range utils.SplitMessage(s.Match.Summary, utils.MaxMessageLength) {
		e.Notify(ctx, s.Match.ChatID, chunk)
	}
	if text := e.wagerReport(ctx, s.Wagers); text != "" {
		e.Notify(ctx, s.Match.ChatID, text)
	}
}

func (e *Engine) wagerReport(ctx context.Context, results []services.WagerResult) string {
	var b strings.Builder
	for _, r := range results {
		name := fmt.Sprintf("player %d", r.PlayerID)
		if p, err := e.store.Players.Get(ctx, r.PlayerID); err == nil && p.Username != "" {
			name = "@" + p.Username
		}
		switch r.Status {
		case models.WagerStatusWon:
			fmt.Fprintf(&b, "%s won %d coins from wager!\n", name, r.Payout)
		case models.WagerStatusRefunded:
			fmt.Fprintf(&b, "%s got %d coins back from wager.\n", name, r.Payout)
		default:
			fmt.Fprintf(&b, "%s lost %d coins from wager.\n", name, r.Amount)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// abandon closes a running match without a result and refunds its wagers
func (e *Engine) abandon(ctx context.Context, match *models.Match, reason string) error {
	var results []services.WagerResult
	abandoned := false
	err := e.store.Transaction(ctx, func(tx *repositories.Store) error {
		ok, err := tx.Matches.Transition(ctx, match.ID, []string{models.MatchPhaseRunning}, models.MatchPhaseAbandoned, closedFields(e.now()))
		if err != nil || !ok {
			return err
		}
		abandoned = true
		results, err = e.wagers.RefundTx(ctx, tx, match.ID)
		return err
	})
	if err != nil || !abandoned {
		return err
	}

	logger.Warn("Match abandoned", "match_id", match.ID, "reason", reason, "refunded_wagers", len(results))
	e.Notify(ctx, match.ChatID, fmt.Sprintf("Match %d ended with an unknown outcome (%s).", match.ID, reason))
	if text := e.wagerReport(ctx, results); text != "" {
		e.Notify(ctx, match.ChatID, text)
	}
	return nil
}

// Resume decides what happens to an open match after a restart. Matches
// caught mid-play are abandoned since their progress cannot be replayed.
func (e *Engine) Resume(ctx context.Context, matchID uint) (ResumeAction, error) {
	match, err := e.store.Matches.Get(ctx, matchID)
	if err != nil {
		return ResumeNone, err
	}

	switch {
	case match.IsClosed():
		return ResumeNone, nil
	case match.Phase == models.MatchPhaseStarting:
		return ResumeRun, nil
	case match.Phase == models.MatchPhaseRunning:
		if err := e.abandon(ctx, match, "interrupted by a restart"); err != nil {
			return ResumeNone, err
		}
		return ResumeAbandoned, nil
	case match.IsRecruiting():
		if e.now().Before(match.JoinDeadline) {
			return ResumeWait, nil
		}
		outcome, err := e.ExpireJoinWindow(ctx, matchID)
		if err != nil {
			return ResumeNone, err
		}
		switch outcome {
		case ExpireStarting:
			return ResumeRun, nil
		case ExpireCancelled:
			return ResumeCancelled, nil
		}
	}
	return ResumeNone, nil
}

// Notify sends a standalone message. Delivery failures are logged only.
func (e *Engine) Notify(ctx context.Context, chatID int64, text string) int {
	if e.sink == nil || text == "" {
		return 0
	}
	handle, err := e.sink.Send(ctx, chatID, text)
	if err != nil {
		logger.Warn("Failed to deliver match message", "chat_id", chatID, "error", err)
		return 0
	}
	return handle
}

// JoinWindow is how long a proposed match recruits
func (e *Engine) JoinWindow() time.Duration {
	return e.joinWindow
}
