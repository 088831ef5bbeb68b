package domain

import "time"

// Agent domains, in the fixed order the orchestrator runs them.
const (
	DomainHunter       = "Hunter"
	DomainCollections  = "Collections"
	DomainCFO          = "CFO"
	DomainProductivity = "Productivity"
	DomainTax          = "Tax"
	DomainSystem       = "System"
)

// Domains lists the scan domains in run order.
var Domains = []string{DomainHunter, DomainCollections, DomainCFO, DomainProductivity, DomainTax}

// Notification kinds written by the agents.
const (
	KindJobMatch      = "job_match"
	KindInvoiceNudge  = "invoice_nudge"
	KindSmartSplit    = "smart_split"
	KindScheduleAlert = "schedule_alert"
	KindTaxReview     = "tax_review"
	KindStatusReport  = "status_report"
	KindSystem        = "system"
)

type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Role             string     `json:"role" enum:"freelancer,client"`
	Skills           []string   `json:"skills"`
	ExperienceYears  int        `json:"experience_years"`
	CredibilityScore int        `json:"credibility_score"`
	BidsPausedUntil  *time.Time `json:"bids_paused_until,omitempty" format:"date-time"`
	ResumeUploadedAt *time.Time `json:"resume_uploaded_at,omitempty" format:"date-time"`
	CreatedAt        time.Time  `json:"created_at" format:"date-time"`
}

type Invoice struct {
	ID           string    `json:"invoice_id"`
	FreelancerID string    `json:"freelancer_id"`
	ClientID     string    `json:"client_id"`
	AmountDue    float64   `json:"amount_due"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status" enum:"Draft,Sent,Overdue,PENDING,PAID"`
	DueDate      time.Time `json:"due_date" format:"date-time"`
	DaysOverdue  *int      `json:"days_overdue,omitempty"`
	CreatedAt    time.Time `json:"created_at" format:"date-time"`
}

type InvoiceCommunication struct {
	InvoiceID string    `json:"invoice_id"`
	TS        time.Time `json:"ts" format:"date-time"`
	Channel   string    `json:"type"`
	Message   string    `json:"message"`
}

type Transaction struct {
	ID        string    `json:"transaction_id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type" enum:"CREDIT,DEBIT"`
	Narration string    `json:"narration"`
	Category  string    `json:"category,omitempty"`
	Date      time.Time `json:"date" format:"date-time"`
}

type BankAccount struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Balance    float64 `json:"balance"`
	TaxReserve float64 `json:"tax_reserve"`
	Savings    float64 `json:"savings"`
}

type Task struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	Title    string     `json:"title"`
	DueDate  *time.Time `json:"due_date,omitempty" format:"date-time"`
	EstHours float64    `json:"est_hours"`
	Done     bool       `json:"done"`
	Priority string     `json:"priority,omitempty" enum:"high,medium,low"`
}

type CalendarEvent struct {
	ID          string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start_time" format:"date-time"`
	End         time.Time `json:"end_time" format:"date-time"`
	Kind        string    `json:"type"`
	Description string    `json:"description,omitempty"`
}

type Job struct {
	ID       string    `json:"job_id"`
	ClientID string    `json:"client_id"`
	Title    string    `json:"title"`
	Skills   []string  `json:"skills"`
	Budget   float64   `json:"budget"`
	Status   string    `json:"status" enum:"Open,InProgress,Closed"`
	PostedAt time.Time `json:"posted_at" format:"date-time"`
}

type Bid struct {
	ID           string    `json:"bid_id"`
	JobID        string    `json:"job_id"`
	JobTitle     string    `json:"job_title,omitempty"`
	FreelancerID string    `json:"freelancer_id"`
	Amount       float64   `json:"bid_amount"`
	Proposal     string    `json:"proposal_text"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at" format:"date-time"`
}

type ClientStats struct {
	ActiveJobs         int     `json:"activeJobs"`
	TotalSpent         float64 `json:"totalSpent"`
	UnreadApplications int     `json:"unreadApplications"`
}

// Notification is a ledger entry. Domain is empty for rows written before
// the column existed; readers fall back to the kind lookup table.
type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipient_id"`
	Domain      string         `json:"domain,omitempty"`
	Kind        string         `json:"type"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"created_at" format:"date-time"`
}

// UniqueKey returns metadata.uniqueKey, or "" when absent.
func (n Notification) UniqueKey() string {
	if n.Metadata == nil {
		return ""
	}
	s, _ := n.Metadata["uniqueKey"].(string)
	return s
}

// Priority returns metadata.priority, or "" when absent.
func (n Notification) Priority() string {
	if n.Metadata == nil {
		return ""
	}
	s, _ := n.Metadata["priority"].(string)
	return s
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ResumeAnalysis struct {
	Fingerprint      string   `json:"fingerprint"`
	Skills           []string `json:"skills"`
	ExperienceYears  int      `json:"experienceYears"`
	CredibilityScore int      `json:"credibilityScore"`
	Summary          string   `json:"summary"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
}
