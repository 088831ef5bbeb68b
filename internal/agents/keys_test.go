package agents_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gigdesk/internal/agents"
)

func TestCollectionsKeyStableWithinDay(t *testing.T) {
	morning := time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 6, 23, 0, 0, 0, time.UTC)
	next := morning.Add(24 * time.Hour)

	assert.Equal(t, "col_inv_1_2024-03-06", agents.CollectionsKey("inv_1", morning))
	assert.Equal(t, agents.CollectionsKey("inv_1", morning), agents.CollectionsKey("inv_1", evening))
	assert.NotEqual(t, agents.CollectionsKey("inv_1", morning), agents.CollectionsKey("inv_1", next))
	assert.NotEqual(t, agents.CollectionsKey("inv_1", morning), agents.CollectionsKey("inv_2", morning))
}

func TestTransactionKeys(t *testing.T) {
	assert.Equal(t, "cfo_t1", agents.CFOKey("t1"))
	assert.Equal(t, "tax_t1", agents.TaxKey("t1"))
	assert.Equal(t, "hunt_j1", agents.HunterKey("j1"))
}

func TestProductivityKeyAlwaysUnique(t *testing.T) {
	at := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		k := agents.ProductivityKey(agents.TypeBlockNewJobs, at)
		assert.True(t, strings.HasPrefix(k, "prod_block_new_jobs_"))
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestKeyDispatch(t *testing.T) {
	at := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "col_inv_9_2024-03-06", agents.Key(agents.Action{InvoiceNudge: &agents.InvoiceNudge{InvoiceID: "inv_9"}}, at))
	assert.Equal(t, "cfo_t1", agents.Key(agents.Action{SmartSplit: &agents.SmartSplit{TransactionID: "t1"}}, at))
	assert.Equal(t, "tax_t2", agents.Key(agents.Action{ExpenseCategory: &agents.ExpenseCategory{TransactionID: "t2"}}, at))
	assert.True(t, strings.HasPrefix(agents.Key(agents.Action{Reprioritize: &agents.Reprioritize{}}, at), "prod_suggest_reprioritize_"))
}
