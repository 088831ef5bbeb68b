package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gigdesk/internal/agents"
	"gigdesk/internal/domain"
	"gigdesk/internal/events"
	"gigdesk/internal/money"
	"gigdesk/internal/repo"
)

// ExecuteRequest is a user's confirmation of a suggested action.
type ExecuteRequest struct {
	Domain         string         `json:"agent"`
	Kind           string         `json:"type"`
	Payload        map[string]any `json:"payload,omitempty"`
	NotificationID string         `json:"id,omitempty"`
}

type ExecuteResult struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type execFunc func(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error)

// execution is the state one confirmed action runs with.
type execution struct {
	userID  string
	user    domain.User
	payload map[string]any
	now     time.Time
}

var kindAliases = map[string]string{
	"job_bid":            agents.TypeCreateBid,
	domain.KindTaxReview: agents.TypeCategorizeExpense,
}

func (e Engine) handlers() map[string]execFunc {
	return map[string]execFunc{
		domain.DomainHunter + "/" + agents.TypeCreateBid:                 e.execCreateBid,
		domain.DomainProductivity + "/" + agents.TypeCreateDeepWorkBlock: e.execDeepWork,
		domain.DomainProductivity + "/" + agents.TypeSuggestReprioritize: e.execReprioritize,
		domain.DomainProductivity + "/" + agents.TypeBlockNewJobs:        e.execBlockNewJobs,
		domain.DomainTax + "/" + agents.TypeCategorizeExpense:            e.execCategorize,
		domain.DomainCFO + "/" + domain.KindSmartSplit:                   e.execSmartSplit,
		domain.DomainCollections + "/" + domain.KindInvoiceNudge:         e.execInvoiceNudge,
	}
}

// resolveAction canonicalizes the (domain, kind) pair and picks its handler.
func (e Engine) resolveAction(req ExecuteRequest) (string, execFunc, error) {
	dom := strings.TrimSpace(req.Domain)
	for _, d := range domain.Domains {
		if strings.EqualFold(d, dom) {
			dom = d
			break
		}
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == domain.KindScheduleAlert {
		kind = payloadString(req.Payload, "type")
	}
	if alias, ok := kindAliases[kind]; ok {
		kind = alias
	}
	key := dom + "/" + kind
	fn, ok := e.handlers()[key]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s/%s", ErrUnknownAction, req.Domain, req.Kind)
	}
	return key, fn, nil
}

// ExecuteAction applies one confirmed action and, when NotificationID is set,
// marks that entry read in the same transaction. Unknown actions fail before
// anything is written; a failed mutation leaves the entry unread.
func (e Engine) ExecuteAction(ctx context.Context, userID string, req ExecuteRequest) (ExecuteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ExecuteResult{}, errors.New("user id is required")
	}
	key, fn, err := e.resolveAction(req)
	if err != nil {
		return ExecuteResult{}, err
	}
	user, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return ExecuteResult{}, fmt.Errorf("load user: %w", err)
	}
	x := &execution{userID: userID, user: user, payload: req.Payload, now: e.now()}
	if x.payload == nil {
		x.payload = map[string]any{}
	}

	var res ExecuteResult
	err = e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = fn(ctx, tx, x)
		if err != nil {
			return err
		}
		if req.NotificationID != "" {
			err := e.Ledger().MarkRead(ctx, tx, userID, req.NotificationID)
			if errors.Is(err, repo.ErrNotFound) {
				e.log().Warn("executed action without a matching notification", "notification_id", req.NotificationID, "user_id", userID)
			} else if err != nil {
				return fmt.Errorf("mark notification read: %w", err)
			}
		}
		return e.events().Append(ctx, tx, events.TypeActionExecuted, userID, events.EntityNotification, req.NotificationID, events.EventPayload{
			"action":  key,
			"message": res.Message,
		})
	})
	if err != nil {
		return ExecuteResult{}, err
	}
	return res, nil
}

func (e Engine) execCreateBid(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	if x.user.BidsPausedUntil != nil && x.user.BidsPausedUntil.After(x.now) {
		return ExecuteResult{}, fmt.Errorf("%w until %s", ErrBidsPaused, x.user.BidsPausedUntil.Format(time.DateOnly))
	}
	jobID := payloadString(x.payload, "job_id")
	if jobID == "" {
		return ExecuteResult{}, fmt.Errorf("%w: job_id is required", ErrInvalidPayload)
	}
	job, err := e.Repo.GetJob(ctx, tx, jobID)
	if errors.Is(err, repo.ErrNotFound) {
		return ExecuteResult{}, fmt.Errorf("%w: job %s not found", ErrInvalidPayload, jobID)
	}
	if err != nil {
		return ExecuteResult{}, err
	}
	amount, ok := payloadFloat(x.payload, "bid_amount")
	if !ok {
		amount = job.Budget
	}
	bid := domain.Bid{
		ID:           "bid_" + uuid.NewString(),
		JobID:        job.ID,
		FreelancerID: x.userID,
		Amount:       amount,
		Proposal:     payloadString(x.payload, "proposal_draft"),
		Status:       "Pending",
		SubmittedAt:  x.now,
	}
	if err := e.Repo.InsertBid(ctx, tx, bid); err != nil {
		return ExecuteResult{}, err
	}
	if _, err := e.Ledger().createIfAbsent(ctx, tx, x.userID, domain.DomainHunter, domain.KindSystem,
		"Bid submitted successfully for Job ID: "+job.ID,
		map[string]any{"uniqueKey": agents.HunterKey(job.ID), "priority": agents.PriorityLow, "job_id": job.ID, "bid_id": bid.ID},
	); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Message: "Bid submitted successfully", Data: map[string]any{"bid_id": bid.ID, "job_id": job.ID}}, nil
}

func (e Engine) execDeepWork(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	start, okStart := payloadTime(x.payload, "start")
	end, okEnd := payloadTime(x.payload, "end")
	if !okStart || !okEnd || !end.After(start) {
		return ExecuteResult{}, fmt.Errorf("%w: start and end are required", ErrInvalidPayload)
	}
	evt := domain.CalendarEvent{
		ID:          "evt_" + uuid.NewString(),
		UserID:      x.userID,
		Title:       "Deep Work Block",
		Start:       start,
		End:         end,
		Kind:        "focus",
		Description: payloadString(x.payload, "title"),
	}
	if err := e.Repo.InsertCalendarEvent(ctx, tx, evt); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Message: "Deep work block scheduled", Data: map[string]any{"event_id": evt.ID}}, nil
}

func (e Engine) execReprioritize(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	var suggestions []agents.PrioritySuggestion
	if raw, ok := x.payload["suggestions"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return ExecuteResult{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if err := json.Unmarshal(data, &suggestions); err != nil {
			return ExecuteResult{}, fmt.Errorf("%w: suggestions: %v", ErrInvalidPayload, err)
		}
	}
	if len(suggestions) == 0 {
		return ExecuteResult{Message: "No suggestions to apply"}, nil
	}
	var updated int
	for _, s := range suggestions {
		if s.TaskID == "" || s.SuggestedPriority == "" {
			continue
		}
		ok, err := e.Repo.SetTaskPriority(ctx, tx, x.userID, s.TaskID, s.SuggestedPriority)
		if err != nil {
			return ExecuteResult{}, err
		}
		if ok {
			updated++
		}
	}
	return ExecuteResult{Message: "Tasks reprioritized", Data: map[string]any{"updated": updated}}, nil
}

func (e Engine) execBlockNewJobs(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	until, ok := payloadTime(x.payload, "until")
	if !ok {
		until = x.now.AddDate(0, 0, 7)
	}
	if err := e.Repo.SetBidsPausedUntil(ctx, tx, x.userID, until); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{
		Message: "New bids paused until " + until.UTC().Format(time.DateOnly),
		Data:    map[string]any{"until": until.UTC().Format(time.RFC3339)},
	}, nil
}

func (e Engine) execCategorize(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	id := payloadString(x.payload, "transaction_id")
	category := payloadString(x.payload, "category")
	if category == "" {
		return ExecuteResult{}, fmt.Errorf("%w: category is required", ErrInvalidPayload)
	}
	txn, err := e.Repo.GetTransaction(ctx, tx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && txn.UserID != x.userID) {
		return ExecuteResult{Message: "Transaction categorized (Simulated)", Data: map[string]any{"category": category}}, nil
	}
	if err != nil {
		return ExecuteResult{}, err
	}
	if err := e.Repo.SetTransactionCategory(ctx, tx, txn.ID, category); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Message: "Transaction categorized", Data: map[string]any{"transaction_id": txn.ID, "category": category}}, nil
}

func (e Engine) execSmartSplit(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	taxReserve, okTax := payloadFloat(x.payload, "tax_reserve")
	savings, okSavings := payloadFloat(x.payload, "savings")
	if !okTax || !okSavings {
		amount, ok := payloadFloat(x.payload, "amount")
		if !ok {
			return ExecuteResult{}, fmt.Errorf("%w: amount or allocations are required", ErrInvalidPayload)
		}
		cfg := e.Config.Agents.CFO
		taxReserve = money.Round(amount * cfg.TaxReservePct)
		savings = money.Round(amount * cfg.SavingsPct)
	}
	data := map[string]any{"tax_reserve": taxReserve, "savings": savings}

	err := e.Repo.AllocateFunds(ctx, tx, x.userID, taxReserve, savings)
	if errors.Is(err, repo.ErrNotFound) {
		return ExecuteResult{Message: "Funds allocated (Simulated)", Data: data}, nil
	}
	if err != nil {
		return ExecuteResult{}, err
	}
	if id := payloadString(x.payload, "transaction_id"); id != "" {
		txn, err := e.Repo.GetTransaction(ctx, tx, id)
		switch {
		case errors.Is(err, repo.ErrNotFound):
		case err != nil:
			return ExecuteResult{}, err
		case txn.UserID == x.userID:
			if err := e.Repo.SetTransactionCategory(ctx, tx, id, agents.CategorySplit); err != nil {
				return ExecuteResult{}, err
			}
		}
	}
	return ExecuteResult{Message: "Funds allocated successfully", Data: data}, nil
}

func (e Engine) execInvoiceNudge(ctx context.Context, tx *sql.Tx, x *execution) (ExecuteResult, error) {
	id := payloadString(x.payload, "invoice_id")
	if id == "" {
		return ExecuteResult{}, fmt.Errorf("%w: invoice_id is required", ErrInvalidPayload)
	}
	inv, err := e.Repo.GetInvoice(ctx, tx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && inv.FreelancerID != x.userID) {
		return ExecuteResult{Message: "Reminder sent (Simulated)"}, nil
	}
	if err != nil {
		return ExecuteResult{}, err
	}
	if err := e.Repo.AppendInvoiceCommunication(ctx, tx, domain.InvoiceCommunication{
		InvoiceID: inv.ID,
		TS:        x.now,
		Channel:   "email",
		Message:   "Reminder sent via Collections Agent",
	}); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.Repo.SetInvoiceStatus(ctx, tx, inv.ID, "PENDING"); err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Message: "Reminder sent successfully", Data: map[string]any{"invoice_id": inv.ID}}, nil
}

func payloadString(p map[string]any, key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func payloadFloat(p map[string]any, key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func payloadTime(p map[string]any, key string) (time.Time, bool) {
	switch v := p[key].(type) {
	case time.Time:
		return v.UTC(), !v.IsZero()
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}
