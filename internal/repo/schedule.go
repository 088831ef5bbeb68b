package repo

import (
	"context"
	"database/sql"
	"errors"

	"gigdesk/internal/domain"
)

func (r Repo) UpsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	if t.ID == "" || t.UserID == "" {
		return errors.New("id and user_id required")
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(id,user_id,title,due_date,est_hours,done,priority) VALUES (?,?,?,?,?,?,?)
ON CONFLICT(user_id,id) DO UPDATE SET title=excluded.title, due_date=excluded.due_date, est_hours=excluded.est_hours, done=excluded.done, priority=excluded.priority`,
		t.ID, t.UserID, t.Title, nullableTime(t.DueDate), t.EstHours, boolInt(t.Done), nullable(t.Priority))
	return err
}

func (r Repo) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,title,due_date,est_hours,done,COALESCE(priority,'') FROM tasks WHERE user_id=? ORDER BY COALESCE(due_date,'9999'), id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var (
			t    domain.Task
			due  sql.NullString
			done int
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &due, &t.EstHours, &done, &t.Priority); err != nil {
			return nil, err
		}
		if t.DueDate, err = parseNullTime(due); err != nil {
			return nil, err
		}
		t.Done = done != 0
		res = append(res, t)
	}
	return res, rows.Err()
}

// SetTaskPriority reports false when the task does not belong to the user.
func (r Repo) SetTaskPriority(ctx context.Context, tx *sql.Tx, userID, taskID, priority string) (bool, error) {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE tasks SET priority=? WHERE user_id=? AND id=?`, nullable(priority), userID, taskID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r Repo) InsertCalendarEvent(ctx context.Context, tx *sql.Tx, e domain.CalendarEvent) error {
	if e.ID == "" || e.UserID == "" {
		return errors.New("event_id and user_id required")
	}
	if e.Kind == "" {
		e.Kind = "meeting"
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO calendar_events(event_id,user_id,title,start_time,end_time,kind,description) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.UserID, e.Title, FormatTime(e.Start), FormatTime(e.End), e.Kind, nullable(e.Description))
	return err
}

func (r Repo) ListCalendarEvents(ctx context.Context, userID string) ([]domain.CalendarEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT event_id,user_id,title,start_time,end_time,kind,COALESCE(description,'') FROM calendar_events WHERE user_id=? ORDER BY start_time, event_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CalendarEvent
	for rows.Next() {
		var e domain.CalendarEvent
		var start, end string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &start, &end, &e.Kind, &e.Description); err != nil {
			return nil, err
		}
		if e.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if e.End, err = parseTime(end); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
