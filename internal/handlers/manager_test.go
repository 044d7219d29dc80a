package handlers

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mroshb/battle_forge/internal/config"
	"github.com/mroshb/battle_forge/internal/match"
	"github.com/mroshb/battle_forge/internal/middleware"
	"github.com/mroshb/battle_forge/internal/models"
	"github.com/mroshb/battle_forge/internal/reports"
	"github.com/mroshb/battle_forge/internal/repositories"
	"github.com/mroshb/battle_forge/internal/scheduler"
	"github.com/mroshb/battle_forge/internal/services"
	"github.com/mroshb/battle_forge/internal/testutil"
	"github.com/mroshb/battle_forge/pkg/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	adminID   = int64(1)
	aliceID   = int64(10)
	bobID     = int64(11)
	testChat  = int64(-100)
	chatTitle = "Arena"
)

type document struct {
	name    string
	data    []byte
	caption string
}

type fakeBot struct {
	mu        sync.Mutex
	messages  []string
	documents []document
}

func (b *fakeBot) SendMessage(_ int64, text string, _ interface{}) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, text)
	return len(b.messages)
}

func (b *fakeBot) SendDocument(_ int64, name string, data []byte, caption string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.documents = append(b.documents, document{name: name, data: data, caption: caption})
	return nil
}

func (b *fakeBot) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return ""
	}
	return b.messages[len(b.messages)-1]
}

type nopSink struct{}

func (nopSink) Send(context.Context, int64, string) (int, error)         { return 1, nil }
func (nopSink) Replace(context.Context, int, int64, string) (int, error) { return 1, nil }

type fixture struct {
	store *repositories.Store
	h     *HandlerManager
	bot   *fakeBot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repositories.NewStore(testutil.NewDB(t))
	tuning := config.DefaultTuning()
	d := dice.New()

	economy := services.NewEconomyService(store, tuning, d)
	teams := services.NewTeamService(store)
	wagers := services.NewWagerService(store, tuning)
	engine := match.NewEngine(store, wagers, tuning, nopSink{}, time.Minute, match.WithSleeper(match.NoSleep))
	sched := scheduler.New(engine, economy, services.NewWarService(store, tuning, d), teams,
		scheduler.Config{RandomMatchMin: time.Hour, RandomMatchMax: 2 * time.Hour},
		scheduler.WithSleeper(match.NoSleep))
	t.Cleanup(sched.Stop)

	limiter, err := middleware.NewRateLimiter(100, time.Minute, 100)
	require.NoError(t, err)

	h := NewHandlerManager(
		&config.Config{SuperAdminTgID: adminID},
		services.NewPlayerService(store, tuning, d, 5),
		economy,
		teams,
		services.NewTradeService(store, d),
		wagers,
		engine,
		sched,
		reports.NewExporter(store, 0),
		limiter,
	)
	return &fixture{store: store, h: h, bot: &fakeBot{}}
}

func (f *fixture) run(t *testing.T, userID int64, username, line string) string {
	t.Helper()
	fields := strings.Fields(line)
	req := &Request{ChatID: testChat, ChatTitle: chatTitle, UserID: userID, Username: username, Args: fields[1:]}
	require.True(t, f.h.Dispatch(context.Background(), fields[0], req, f.bot), "command %s", fields[0])
	return f.bot.last()
}

func TestDispatch_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	req := &Request{ChatID: testChat, UserID: aliceID}
	assert.False(t, f.h.Dispatch(context.Background(), "/nope", req, f.bot))
	assert.Empty(t, f.bot.messages)
}

func TestDispatch_StartRegistersPlayer(t *testing.T) {
	f := newFixture(t)

	reply := f.run(t, aliceID, "alice", "/Start@battle_forge_bot")
	assert.Contains(t, reply, "Welcome to BattleForge in Arena")
	assert.Contains(t, reply, "Arena coin")

	player, err := f.store.Players.Get(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Equal(t, "alice", player.Username)

	team, err := f.store.Teams.GetByOwner(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Equal(t, "@alice_team", team.Name)

	assert.Contains(t, f.run(t, aliceID, "alice", "/mystats"), "Population: 5")
}

func TestDispatch_RateLimited(t *testing.T) {
	f := newFixture(t)
	limiter, err := middleware.NewRateLimiter(1, time.Minute, 10)
	require.NoError(t, err)
	f.h.Limiter = limiter

	assert.Equal(t, "No players have currencies yet!", f.run(t, aliceID, "alice", "/currencies"))
	assert.Equal(t, MsgRateLimited, f.run(t, aliceID, "alice", "/currencies"))
	assert.Equal(t, "No players have currencies yet!", f.run(t, bobID, "bob", "/currencies"))
}

func TestUsageMessages(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, UsageMerge, f.run(t, aliceID, "alice", "/merge 1"))
	assert.Equal(t, UsageWar, f.run(t, aliceID, "alice", "/war"))
	assert.Equal(t, UsageGamble, f.run(t, aliceID, "alice", "/gamble 1"))
	assert.Equal(t, UsageAcceptSport, f.run(t, aliceID, "alice", "/acceptsport"))
	assert.Equal(t, UsageUpgrade, f.run(t, aliceID, "alice", "/upgradequality gold"))
	assert.Equal(t, usageTrade("Arena coin"), f.run(t, aliceID, "alice", "/trade water 5"))
	assert.Equal(t, "Match id must be a number!", f.run(t, aliceID, "alice", "/acceptsport abc"))
	assert.Contains(t, f.run(t, aliceID, "alice", "/sportevent chess 2"), "Invalid sport!")
}

func TestServiceErrorsAreShown(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "❌ soccer needs exactly 2 teams", f.run(t, aliceID, "alice", "/sportevent soccer 3"))
	assert.True(t, strings.HasPrefix(f.run(t, aliceID, "alice", "/acceptsport 99"), "❌"))
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []string{"/adminstats", "/randommatches", "/economystep 10", "/export"} {
		assert.Equal(t, MsgAdminOnly, f.run(t, aliceID, "alice", cmd), cmd)
	}
	assert.Empty(t, f.bot.documents)
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t)
	f.run(t, aliceID, "alice", "/start")
	f.run(t, aliceID, "alice", "/sportevent boxing 2")

	reply := f.run(t, adminID, "admin", "/adminstats")
	assert.Contains(t, reply, "Players: 1")
	assert.Contains(t, reply, "Teams: 1")
	assert.Contains(t, reply, "Open matches: 1")
	assert.Contains(t, reply, "Open trades: 0")
}

func TestMatchFlow_BetJoinAndSettle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Contains(t, f.run(t, aliceID, "alice", "/sportevent boxing 2"), "New boxing match 1")
	assert.Contains(t, f.run(t, bobID, "bob", "/matches"), "#1")

	assert.Contains(t, f.run(t, bobID, "bob", "/gamble 1 @alice_team 3"), "Bet 3 Arena coins on @alice_team")
	bob, err := f.store.Players.Get(ctx, bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, bob.Coins)

	assert.Contains(t, f.run(t, bobID, "bob", "/acceptsport 1"), "roster is full")

	require.Eventually(t, func() bool {
		m, err := f.store.Matches.Get(ctx, 1)
		return err == nil && m.Phase == models.MatchPhaseSettled
	}, 5*time.Second, 10*time.Millisecond)

	wagers, err := f.store.Wagers.ListByMatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, wagers, 1)
	assert.NotEqual(t, models.WagerStatusOpen, wagers[0].Status)

	assert.Contains(t, f.run(t, bobID, "bob", "/gamble 1 @alice_team 3"), "❌")
	assert.Equal(t, "You have already joined this match!", f.run(t, bobID, "bob", "/acceptsport 1"))
	assert.Equal(t, "Invalid or closed match id!", f.run(t, 77, "carol", "/acceptsport 1"))
}

func TestCancelSport_OnlyCreator(t *testing.T) {
	f := newFixture(t)

	f.run(t, aliceID, "alice", "/sportevent soccer 2")
	f.run(t, bobID, "bob", "/start")

	assert.Equal(t, "❌ Only the match creator can cancel it!", f.run(t, bobID, "bob", "/cancelsport 1"))
	assert.Contains(t, f.run(t, aliceID, "alice", "/cancelsport 1"), "Match 1 cancelled")
	assert.Equal(t, "This match can no longer be cancelled.", f.run(t, adminID, "admin", "/cancelsport 1"))
}

func TestExport_SendsWorkbook(t *testing.T) {
	f := newFixture(t)
	f.run(t, aliceID, "alice", "/start")

	f.run(t, adminID, "admin", "/export")
	require.Len(t, f.bot.documents, 1)
	doc := f.bot.documents[0]
	assert.Equal(t, "battle_forge.xlsx", doc.name)

	book, err := excelize.OpenReader(bytes.NewReader(doc.data))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{reports.SheetPlayers, reports.SheetTeams, reports.SheetMatches}, book.GetSheetList())
}
