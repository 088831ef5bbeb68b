package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gigdesk/internal/domain"
)

func (r Repo) InsertJob(ctx context.Context, tx *sql.Tx, j domain.Job) error {
	if j.ID == "" || j.ClientID == "" {
		return errors.New("job_id and client_id required")
	}
	if j.Status == "" {
		j.Status = "Open"
	}
	if j.PostedAt.IsZero() {
		j.PostedAt = time.Now()
	}
	skills, err := encodeList(j.Skills)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO jobs(job_id,client_id,title,skills_json,budget,status,posted_at) VALUES (?,?,?,?,?,?,?)`,
		j.ID, j.ClientID, j.Title, skills, j.Budget, j.Status, FormatTime(j.PostedAt))
	return err
}

const jobColumns = `job_id,client_id,title,skills_json,budget,status,posted_at`

func scanJob(scan func(dest ...any) error) (domain.Job, error) {
	var j domain.Job
	var skills, posted string
	if err := scan(&j.ID, &j.ClientID, &j.Title, &skills, &j.Budget, &j.Status, &posted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return j, ErrNotFound
		}
		return j, err
	}
	var err error
	if j.Skills, err = decodeList(skills); err != nil {
		return j, err
	}
	j.PostedAt, err = parseTime(posted)
	return j, err
}

func (r Repo) GetJob(ctx context.Context, tx *sql.Tx, id string) (domain.Job, error) {
	return scanJob(r.q(tx).QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id=?`, id).Scan)
}

// ListOpenJobsForFreelancer returns Open jobs posted at or after since that the
// freelancer has not bid on, newest first.
func (r Repo) ListOpenJobsForFreelancer(ctx context.Context, freelancerID string, since time.Time) ([]domain.Job, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs j
WHERE j.status='Open' AND j.posted_at>=? AND j.client_id<>?
  AND NOT EXISTS (SELECT 1 FROM bids b WHERE b.job_id=j.job_id AND b.freelancer_id=?)
ORDER BY j.posted_at DESC, j.job_id`, FormatTime(since), freelancerID, freelancerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

func (r Repo) InsertBid(ctx context.Context, tx *sql.Tx, b domain.Bid) error {
	if b.ID == "" || b.FreelancerID == "" {
		return errors.New("bid_id and freelancer_id required")
	}
	if b.Status == "" {
		b.Status = "Pending"
	}
	if b.SubmittedAt.IsZero() {
		b.SubmittedAt = time.Now()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO bids(bid_id,job_id,freelancer_id,bid_amount,proposal_text,status,submitted_at) VALUES (?,?,?,?,?,?,?)`,
		b.ID, b.JobID, b.FreelancerID, b.Amount, b.Proposal, b.Status, FormatTime(b.SubmittedAt))
	return err
}

func scanBids(rows *sql.Rows) ([]domain.Bid, error) {
	defer rows.Close()
	var res []domain.Bid
	for rows.Next() {
		var b domain.Bid
		var submitted string
		if err := rows.Scan(&b.ID, &b.JobID, &b.JobTitle, &b.FreelancerID, &b.Amount, &b.Proposal, &b.Status, &submitted); err != nil {
			return nil, err
		}
		var err error
		if b.SubmittedAt, err = parseTime(submitted); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r Repo) ListBidsByFreelancer(ctx context.Context, freelancerID string) ([]domain.Bid, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT b.bid_id,b.job_id,COALESCE(j.title,''),b.freelancer_id,b.bid_amount,b.proposal_text,b.status,b.submitted_at
FROM bids b LEFT JOIN jobs j ON j.job_id=b.job_id WHERE b.freelancer_id=? ORDER BY b.submitted_at DESC, b.rowid DESC`, freelancerID)
	if err != nil {
		return nil, err
	}
	return scanBids(rows)
}

// RecentClientBids returns bids on the client's jobs with the job title, newest first.
func (r Repo) RecentClientBids(ctx context.Context, clientID string, limit int) ([]domain.Bid, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT b.bid_id,b.job_id,j.title,b.freelancer_id,b.bid_amount,b.proposal_text,b.status,b.submitted_at
FROM bids b JOIN jobs j ON j.job_id=b.job_id WHERE j.client_id=? ORDER BY b.submitted_at DESC, b.rowid DESC LIMIT ?`, clientID, limit)
	if err != nil {
		return nil, err
	}
	return scanBids(rows)
}

// ClientStats aggregates the client dashboard counters.
func (r Repo) ClientStats(ctx context.Context, clientID string) (domain.ClientStats, error) {
	var s domain.ClientStats
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM jobs WHERE client_id=? AND status IN ('Open','InProgress')`, clientID).Scan(&s.ActiveJobs); err != nil {
		return s, err
	}
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_due),0) FROM invoices WHERE client_id=? AND status='PAID'`, clientID).Scan(&s.TotalSpent); err != nil {
		return s, err
	}
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM bids b JOIN jobs j ON j.job_id=b.job_id WHERE j.client_id=? AND j.status='Open'`, clientID).Scan(&s.UnreadApplications); err != nil {
		return s, err
	}
	return s, nil
}
