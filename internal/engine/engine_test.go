package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigdesk/internal/config"
	"gigdesk/internal/db"
	"gigdesk/internal/domain"
	"gigdesk/internal/engine"
	"gigdesk/internal/events"
	"gigdesk/internal/migrate"
	"gigdesk/internal/repo"
	"gigdesk/internal/resume"
)

// Wednesday.
var dayD = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	env := &testEnv{Ctx: context.Background(), now: dayD}
	env.Engine = engine.New(conn, config.Default())
	env.Engine.Now = func() time.Time { return env.now }

	require.NoError(t, env.Engine.Repo.InsertUser(env.Ctx, nil, domain.User{ID: "u1", Name: "Asha", Skills: []string{"go", "postgres"}, ExperienceYears: 4}))
	require.NoError(t, env.Engine.Repo.InsertUser(env.Ctx, nil, domain.User{ID: "c1", Name: "Acme", Role: "client"}))
	return env
}

// seedFinance adds one qualifying overdue invoice and one large credit.
func (env *testEnv) seedFinance(t *testing.T) {
	t.Helper()
	r := env.Engine.Repo
	require.NoError(t, r.InsertInvoice(env.Ctx, nil, domain.Invoice{
		ID: "inv_1", FreelancerID: "u1", ClientID: "c1", AmountDue: 12000, Currency: "INR",
		Status: "Overdue", DueDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, r.InsertTransaction(env.Ctx, nil, domain.Transaction{
		ID: "t1", UserID: "u1", Amount: 50000, Type: "CREDIT", Narration: "NEFT from Acme", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}))
}

func (env *testEnv) seedSchedule(t *testing.T) {
	t.Helper()
	due := func(m time.Month, d int) *time.Time {
		v := time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	for _, task := range []domain.Task{
		{ID: "t1", UserID: "u1", Title: "Ship API", DueDate: due(3, 4), EstHours: 20, Priority: "medium"},
		{ID: "t2", UserID: "u1", Title: "Review PR", DueDate: due(3, 8), EstHours: 10},
		{ID: "t3", UserID: "u1", Title: "Write blog", DueDate: due(4, 30), EstHours: 2, Priority: "medium"},
	} {
		require.NoError(t, env.Engine.Repo.UpsertTask(env.Ctx, nil, task))
	}
}

func (env *testEnv) unread(t *testing.T, kind string) []domain.Notification {
	t.Helper()
	notes, err := env.Engine.Repo.ListNotifications(env.Ctx, repo.NotificationFilter{RecipientID: "u1", Kind: kind, UnreadOnly: true})
	require.NoError(t, err)
	return notes
}

func (env *testEnv) actionRows(t *testing.T) int {
	t.Helper()
	all, err := env.Engine.Repo.ListNotifications(env.Ctx, repo.NotificationFilter{RecipientID: "u1"})
	require.NoError(t, err)
	var n int
	for _, note := range all {
		if note.Kind != domain.KindStatusReport {
			n++
		}
	}
	return n
}

func TestRunAllAgentsRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, " ")
	require.Error(t, err)
}

func TestRunAllAgentsLog(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)

	res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, res.DomainErrors)
	assert.Equal(t, 2, res.ActionCount)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "run_log", []byte(strings.Join(res.Logs, "\n")+"\n"))

	reports := env.unread(t, domain.KindStatusReport)
	domains := map[string]bool{}
	for _, r := range reports {
		domains[r.Domain] = true
		assert.Equal(t, "low", r.Priority())
	}
	assert.Equal(t, map[string]bool{domain.DomainHunter: true, domain.DomainProductivity: true, domain.DomainTax: true}, domains)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, "u1", events.TypeAgentsRun)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Contains(t, evts[0].Payload, `"actions":2`)
}

func TestRunAllAgentsConcurrentKeepsLogOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	env.Engine.Config.Agents.Concurrent = true

	res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ActionCount)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "run_log", []byte(strings.Join(res.Logs, "\n")+"\n"))
}

func TestCollectionsDedupAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)

	res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, env.unread(t, domain.KindInvoiceNudge), 1)
	assert.Equal(t, env.actionRows(t), res.ActionCount)

	env.now = dayD.Add(3 * time.Hour)
	res, err = env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ActionCount)
	assert.Len(t, env.unread(t, domain.KindInvoiceNudge), 1)
	assert.Contains(t, res.Logs, "Collections: Reminder for inv_1 already pending")
	assert.Contains(t, res.Logs, "CFO: Smart split for t1 already pending")

	env.now = dayD.AddDate(0, 0, 1)
	res, err = env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ActionCount)
	nudges := env.unread(t, domain.KindInvoiceNudge)
	require.Len(t, nudges, 2)
	assert.Equal(t, "col_inv_1_2024-03-07", nudges[0].UniqueKey())
	assert.Equal(t, "col_inv_1_2024-03-06", nudges[1].UniqueKey())
}

func TestProductivityActionsCountedSeparately(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)

	before := env.actionRows(t)
	res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ActionCount)
	assert.Equal(t, before+3, env.actionRows(t))
	assert.Contains(t, res.Logs, "Productivity: Generated 3 schedule suggestions.")

	alerts := env.unread(t, domain.KindScheduleAlert)
	require.Len(t, alerts, 3)
	keys := map[string]bool{}
	for _, a := range alerts {
		assert.Equal(t, domain.DomainProductivity, a.Domain)
		keys[a.UniqueKey()] = true
	}
	assert.Len(t, keys, 3)
}

type brokenSets struct {
	engine.RepoSets
	failInvoices bool
	panicTasks   bool
}

func (b brokenSets) OverdueInvoices(ctx context.Context, userID string) ([]domain.Invoice, error) {
	if b.failInvoices {
		return nil, errors.New("storage offline")
	}
	return b.RepoSets.OverdueInvoices(ctx, userID)
}

func (b brokenSets) Tasks(ctx context.Context, userID string) ([]domain.Task, error) {
	if b.panicTasks {
		panic("tasks exploded")
	}
	return b.RepoSets.Tasks(ctx, userID)
}

func TestFailingDomainDoesNotStopRun(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	env.Engine.Sets = brokenSets{RepoSets: engine.RepoSets{Repo: env.Engine.Repo}, failInvoices: true}

	res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, res.Logs, "Collections Error: load invoices: storage offline")
	for _, line := range []string{
		"Hunter: Scanning for job matches...",
		"CFO: Smart split suggested for t1",
		"Productivity: Evaluating schedule...",
		"Tax: Reviewing expenses...",
	} {
		assert.Contains(t, res.Logs, line)
	}
	assert.Equal(t, 1, res.ActionCount)
	assert.Equal(t, []string{domain.DomainCollections}, res.FailedDomains())

	var de *engine.DomainError
	require.ErrorAs(t, res.DomainErrors, &de)
	assert.Equal(t, domain.DomainCollections, de.Domain)
}

func TestPanickingDomainIsRecovered(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		env := newTestEnv(t)
		env.Engine.Config.Agents.Concurrent = concurrent
		env.Engine.Sets = brokenSets{RepoSets: engine.RepoSets{Repo: env.Engine.Repo}, panicTasks: true}

		res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
		require.NoError(t, err)
		assert.Contains(t, res.Logs, "Productivity Error: panic: tasks exploded")
		assert.Contains(t, res.Logs, "Tax: Reviewing expenses...")
		assert.Equal(t, []string{domain.DomainProductivity}, res.FailedDomains())
	}
}

func TestLedgerWriteFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	_, err := env.Engine.DB.ExecContext(env.Ctx, `CREATE TRIGGER reject_nudges BEFORE INSERT ON notifications
WHEN NEW.kind = 'invoice_nudge'
BEGIN SELECT RAISE(ABORT, 'storage unavailable'); END`)
	require.NoError(t, err)

	res, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.NotContains(t, res.Logs, "Collections: Reminder for inv_1 already pending")
	assert.NotContains(t, res.Logs, "Collections: Action generated for inv_1")
	var errLine bool
	for _, line := range res.Logs {
		if strings.HasPrefix(line, "Collections Error: ") && strings.Contains(line, "storage unavailable") {
			errLine = true
		}
	}
	assert.True(t, errLine, "expected a Collections error line in %v", res.Logs)

	// The other domains still ran and the split was written.
	assert.Contains(t, res.Logs, "CFO: Smart split suggested for t1")
	assert.Equal(t, 1, res.ActionCount)
	assert.Empty(t, env.unread(t, domain.KindInvoiceNudge))
	assert.Equal(t, []string{domain.DomainCollections}, res.FailedDomains())

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, "u1", events.TypeAgentsRun)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Contains(t, evts[0].Payload, `"failed_domains":["Collections"]`)
}

func TestPendingActionsOnlyUnread(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)

	pending, err := env.Engine.PendingActions(env.Ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	first := pending[0]
	require.NoError(t, env.Engine.DismissNotification(env.Ctx, "u1", first.ID))

	after, err := env.Engine.PendingActions(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, after, len(pending)-1)
	for _, p := range after {
		assert.NotEqual(t, first.ID, p.ID)
		n, err := env.Engine.Repo.GetNotification(env.Ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, n.Read)
	}

	err = env.Engine.DismissNotification(env.Ctx, "c1", after[0].ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestPendingStatusFollowsPriority(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)

	pending, err := env.Engine.PendingActions(env.Ctx, "u1")
	require.NoError(t, err)
	var sawWarning bool
	for _, p := range pending {
		if p.Priority == "high" {
			sawWarning = true
			assert.Equal(t, "warning", p.Status)
		} else {
			assert.Equal(t, "success", p.Status)
		}
	}
	assert.True(t, sawWarning)
}

func TestDomainForKind(t *testing.T) {
	cases := map[string]string{
		domain.KindJobMatch:      domain.DomainHunter,
		domain.KindInvoiceNudge:  domain.DomainCollections,
		domain.KindSmartSplit:    domain.DomainCFO,
		domain.KindScheduleAlert: domain.DomainProductivity,
		domain.KindTaxReview:     domain.DomainTax,
		domain.KindStatusReport:  domain.DomainSystem,
		"unknown_kind":           domain.DomainSystem,
		"":                       domain.DomainSystem,
	}
	for kind, want := range cases {
		assert.Equal(t, want, engine.DomainForKind(kind), kind)
	}
}

func TestPendingInfersLegacyDomain(t *testing.T) {
	env := newTestEnv(t)
	for _, n := range []domain.Notification{
		{ID: "legacy_split", RecipientID: "u1", Kind: domain.KindSmartSplit, Message: "old split", CreatedAt: dayD},
		{ID: "legacy_other", RecipientID: "u1", Kind: "unknown_kind", Message: "old other", CreatedAt: dayD.Add(time.Minute)},
	} {
		require.NoError(t, env.Engine.Repo.InsertNotification(env.Ctx, nil, n))
	}
	pending, err := env.Engine.PendingActions(env.Ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "legacy_other", pending[0].ID)
	assert.Equal(t, domain.DomainSystem, pending[0].Domain)
	assert.Equal(t, domain.DomainCFO, pending[1].Domain)
	assert.Equal(t, domain.KindSmartSplit, pending[1].EventKind)
}

func TestLedgerRequiresUniqueKey(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Ledger().CreateIfAbsent(env.Ctx, "u1", domain.DomainCFO, domain.KindSmartSplit, "x", map[string]any{"priority": "low"})
	require.Error(t, err)

	ok, err := env.Engine.Ledger().CreateIfAbsent(env.Ctx, "u1", domain.DomainCFO, domain.KindSmartSplit, "x", map[string]any{"uniqueKey": "cfo_t9"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.Engine.Ledger().CreateIfAbsent(env.Ctx, "u1", domain.DomainCFO, domain.KindSmartSplit, "x", map[string]any{"uniqueKey": "cfo_t9"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecuteSmartSplitMarksOnlyItsNotification(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	require.NoError(t, env.Engine.Repo.UpsertBankAccount(env.Ctx, nil, domain.BankAccount{ID: "acc1", UserID: "u1", Balance: 100000}))
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)

	splits := env.unread(t, domain.KindSmartSplit)
	require.Len(t, splits, 1)
	split := splits[0]
	otherBefore, err := env.Engine.PendingActions(env.Ctx, "u1")
	require.NoError(t, err)

	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainCFO, Kind: domain.KindSmartSplit, Payload: split.Metadata, NotificationID: split.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Funds allocated successfully", res.Message)

	n, err := env.Engine.Repo.GetNotification(env.Ctx, split.ID)
	require.NoError(t, err)
	assert.True(t, n.Read)

	after, err := env.Engine.PendingActions(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, after, len(otherBefore)-1)

	acc, err := env.Engine.Repo.GetBankAccount(env.Ctx, nil, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 15000, acc.TaxReserve, 0.001)
	assert.InDelta(t, 10000, acc.Savings, 0.001)
	assert.InDelta(t, 75000, acc.Balance, 0.001)

	txn, err := env.Engine.Repo.GetTransaction(env.Ctx, nil, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Split", txn.Category)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, "u1", events.TypeActionExecuted)
	require.NoError(t, err)
	assert.Len(t, evts, 1)
}

func TestExecuteSmartSplitWithoutAccountIsSimulated(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: "cfo", Kind: domain.KindSmartSplit, Payload: map[string]any{"amount": 10000.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "Funds allocated (Simulated)", res.Message)
	assert.Equal(t, 3000.0, res.Data["tax_reserve"])
}

func TestExecuteUnknownActionWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	nudge := env.unread(t, domain.KindInvoiceNudge)[0]

	_, err = env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainCFO, Kind: "teleport_funds", NotificationID: nudge.ID,
	})
	require.ErrorIs(t, err, engine.ErrUnknownAction)

	n, err := env.Engine.Repo.GetNotification(env.Ctx, nudge.ID)
	require.NoError(t, err)
	assert.False(t, n.Read)
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 5, "u1", events.TypeActionExecuted)
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestExecuteFailureLeavesNotificationUnread(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	nudge := env.unread(t, domain.KindInvoiceNudge)[0]

	_, err = env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainCollections, Kind: domain.KindInvoiceNudge, Payload: map[string]any{}, NotificationID: nudge.ID,
	})
	require.ErrorIs(t, err, engine.ErrInvalidPayload)
	n, err := env.Engine.Repo.GetNotification(env.Ctx, nudge.ID)
	require.NoError(t, err)
	assert.False(t, n.Read)
}

func TestExecuteInvoiceNudge(t *testing.T) {
	env := newTestEnv(t)
	env.seedFinance(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	nudge := env.unread(t, domain.KindInvoiceNudge)[0]

	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainCollections, Kind: domain.KindInvoiceNudge, Payload: nudge.Metadata, NotificationID: nudge.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Reminder sent successfully", res.Message)

	inv, err := env.Engine.Repo.GetInvoice(env.Ctx, nil, "inv_1")
	require.NoError(t, err)
	assert.Equal(t, "PENDING", inv.Status)
	comms, err := env.Engine.Repo.ListInvoiceCommunications(env.Ctx, "inv_1")
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Equal(t, "email", comms[0].Channel)

	res, err = env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainCollections, Kind: domain.KindInvoiceNudge, Payload: map[string]any{"invoice_id": "inv_404"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Reminder sent (Simulated)", res.Message)
}

func TestExecuteCreateBid(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Engine.Repo.InsertJob(env.Ctx, nil, domain.Job{ID: "j1", ClientID: "c1", Title: "Go API", Skills: []string{"go"}, Budget: 900, PostedAt: dayD}))

	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainHunter, Kind: "job_bid", Payload: map[string]any{"job_id": "j1", "bid_amount": 800.0, "proposal_draft": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bid submitted successfully", res.Message)

	bids, err := env.Engine.Repo.ListBidsByFreelancer(env.Ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.InDelta(t, 800, bids[0].Amount, 0.001)
	assert.Equal(t, "Pending", bids[0].Status)

	confirm := env.unread(t, domain.KindSystem)
	require.Len(t, confirm, 1)
	assert.Equal(t, "Bid submitted successfully for Job ID: j1", confirm[0].Message)
	assert.Equal(t, domain.DomainHunter, confirm[0].Domain)

	_, err = env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{Domain: domain.DomainHunter, Kind: "create_bid"})
	assert.ErrorIs(t, err, engine.ErrInvalidPayload)
}

func TestBlockNewJobsPausesBids(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Engine.Repo.InsertJob(env.Ctx, nil, domain.Job{ID: "j1", ClientID: "c1", Title: "Go API", Skills: []string{"go"}, PostedAt: dayD}))

	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainProductivity, Kind: domain.KindScheduleAlert, Payload: map[string]any{"type": "block_new_jobs"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New bids paused until 2024-03-13", res.Message)

	u, err := env.Engine.Repo.GetUser(env.Ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.BidsPausedUntil)

	_, err = env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainHunter, Kind: "create_bid", Payload: map[string]any{"job_id": "j1"},
	})
	assert.ErrorIs(t, err, engine.ErrBidsPaused)

	run, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, run.Logs, "Hunter: Found 0 new matches.")
}

func TestExecuteScheduleActions(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)

	for _, alert := range env.unread(t, domain.KindScheduleAlert) {
		_, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
			Domain: domain.DomainProductivity, Kind: domain.KindScheduleAlert, Payload: alert.Metadata, NotificationID: alert.ID,
		})
		require.NoError(t, err, alert.Message)
	}
	assert.Empty(t, env.unread(t, domain.KindScheduleAlert))

	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, "u1")
	require.NoError(t, err)
	prio := map[string]string{}
	for _, task := range tasks {
		prio[task.ID] = task.Priority
	}
	assert.Equal(t, "high", prio["t1"])
	assert.Equal(t, "low", prio["t3"])

	evts, err := env.Engine.Repo.ListCalendarEvents(env.Ctx, "u1")
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "focus", evts[0].Kind)
	assert.Equal(t, time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC), evts[0].Start)

	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainProductivity, Kind: "suggest_reprioritize", Payload: map[string]any{"suggestions": []any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, "No suggestions to apply", res.Message)
}

func TestExecuteCategorizeExpense(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Engine.Repo.InsertTransaction(env.Ctx, nil, domain.Transaction{
		ID: "t2", UserID: "u1", Amount: 4200, Type: "DEBIT", Narration: "AWS EMEA invoice", Date: dayD.Add(-time.Hour),
	}))
	run, err := env.Engine.RunAllAgents(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, run.Logs, "Tax: Categorization suggestion for AWS EMEA invoice")

	reviews := env.unread(t, domain.KindTaxReview)
	require.Len(t, reviews, 1)
	res, err := env.Engine.ExecuteAction(env.Ctx, "u1", engine.ExecuteRequest{
		Domain: domain.DomainTax, Kind: domain.KindTaxReview, Payload: reviews[0].Metadata, NotificationID: reviews[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Transaction categorized", res.Message)

	txn, err := env.Engine.Repo.GetTransaction(env.Ctx, nil, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Cloud Infrastructure", txn.Category)
}

type cannedGenerator struct{ reply string }

func (c cannedGenerator) Generate(context.Context, string, int) (string, error) {
	return c.reply, nil
}

func TestApplyResume(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.ApplyResume(env.Ctx, "u1", "text/plain", "Go developer")
	require.ErrorIs(t, err, engine.ErrNoAnalyzer)

	env.Engine.Resume = &resume.Analyzer{
		Generator: cannedGenerator{reply: "```json\n{\"skills\":[\"Go\",\"SQL\"],\"experienceYears\":5,\"credibilityScore\":80,\"summary\":\"Backend developer\"}\n```"},
		Cache:     engine.ResumeCache{Repo: env.Engine.Repo},
	}
	_, err = env.Engine.ApplyResume(env.Ctx, "u1", "application/pdf", "x")
	require.ErrorIs(t, err, resume.ErrUnsupportedType)

	res, err := env.Engine.ApplyResume(env.Ctx, "u1", "text/plain; charset=utf-8", "Go developer since 2019")
	require.NoError(t, err)
	assert.Equal(t, 64, res.Score)
	assert.Equal(t, []string{"Go", "SQL"}, res.Skills)
	assert.Equal(t, "Resume processed and profile updated successfully", res.Message)

	u, err := env.Engine.Repo.GetUser(env.Ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 64, u.CredibilityScore)
	assert.Equal(t, 5, u.ExperienceYears)
	require.NotNil(t, u.ResumeUploadedAt)

	_, err = env.Engine.Repo.GetResumeAnalysis(env.Ctx, resume.Fingerprint("Go developer since 2019"))
	require.NoError(t, err)
}

func TestClientDashboard(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Engine.Repo.InsertJob(env.Ctx, nil, domain.Job{ID: "j1", ClientID: "c1", Title: "Go API", PostedAt: dayD}))
	require.NoError(t, env.Engine.Repo.InsertBid(env.Ctx, nil, domain.Bid{ID: "b1", JobID: "j1", FreelancerID: "u1", Amount: 500, SubmittedAt: dayD}))

	stats, err := env.Engine.ClientStats(env.Ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveJobs)
	assert.Equal(t, 1, stats.UnreadApplications)

	bids, err := env.Engine.RecentBids(env.Ctx, "c1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "Go API", bids[0].JobTitle)

	_, err = env.Engine.ClientStats(env.Ctx, "u1")
	assert.ErrorIs(t, err, engine.ErrNotClient)
}
