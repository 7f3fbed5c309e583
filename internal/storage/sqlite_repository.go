package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

const sqliteTimeLayout = time.RFC3339Nano

const appointmentColumns = `id, owner_id, date, start_min, end_min, all_day, title, description, location, color, status,
	visible_all, reminder_enabled, reminder_value, reminder_unit, reminder_status, reminder_scheduled_at,
	reminder_sent_at, reminder_last_error, google_event_id, series_id, version, created_at, updated_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens path, applies pending migrations, and returns the
// repository.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateAppointment(ctx context.Context, in Row) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return insertRow(ctx, tx, in)
	})
}

// CreateAppointments inserts every row in one transaction; a failing row
// leaves none of them stored.
func (r *SQLiteRepository) CreateAppointments(ctx context.Context, in []Row) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, row := range in {
			if err := insertRow(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetAppointment(ctx context.Context, id string) (Row, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	out, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Row{}, ErrNotFound
		}
		return Row{}, err
	}
	if err := r.loadChildren(ctx, &out.Appointment); err != nil {
		return Row{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateAppointment(ctx context.Context, in Row) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		rem := reminderColumns(in.Reminder)
		res, err := tx.ExecContext(ctx, `
			UPDATE appointments
			SET owner_id = ?, date = ?, start_min = ?, end_min = ?, all_day = ?, title = ?, description = ?,
				location = ?, color = ?, status = ?, visible_all = ?, reminder_enabled = ?, reminder_value = ?,
				reminder_unit = ?, reminder_status = ?, reminder_scheduled_at = ?, reminder_sent_at = ?,
				reminder_last_error = ?, google_event_id = ?, series_id = ?, version = ?, updated_at = ?
			WHERE id = ?`,
			in.OwnerID, in.Date.String(), int(in.Start), int(in.End), boolInt(in.AllDay), in.Title, in.Description,
			in.Location, in.Color, string(in.Status), boolInt(in.Visibility.All), rem.enabled, rem.value,
			rem.unit, rem.status, rem.scheduledAt, rem.sentAt,
			rem.lastError, in.GoogleEventID, in.SeriesID, in.Version, mustTime(in.UpdatedAt),
			in.ID,
		)
		if err != nil {
			return err
		}
		if err := checkRowsAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM appointment_visibility WHERE appointment_id = ?`, in.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM appointment_invitees WHERE appointment_id = ?`, in.ID); err != nil {
			return err
		}
		return writeChildren(ctx, tx, in.Appointment)
	})
}

func (r *SQLiteRepository) DeleteAppointment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Row, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if !filter.Range.Start.IsZero() {
		clauses = append(clauses, "date >= ? AND date <= ?")
		args = append(args, filter.Range.Start.String(), filter.Range.End.String())
	}
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.SeriesID != "" {
		clauses = append(clauses, "series_id = ?")
		args = append(args, filter.SeriesID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date ASC, all_day DESC, start_min ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	return r.queryRows(ctx, query, args...)
}

// Overlapping is the authoritative conflict check. All-day rows and
// inactive statuses never conflict.
func (r *SQLiteRepository) Overlapping(ctx context.Context, q OverlapQuery) ([]model.Appointment, error) {
	if q.Slot.AllDay {
		return nil, nil
	}
	rows, err := r.queryRows(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE owner_id = ? AND date = ? AND all_day = 0 AND id != ?
			AND status NOT IN (?, ?)
			AND NOT (end_min <= ? OR start_min >= ?)
		ORDER BY start_min ASC, id ASC`,
		q.OwnerID, q.Slot.Date.String(), q.ExcludeID,
		string(model.StatusCancelled), string(model.StatusCompleted),
		int(q.Slot.Start), int(q.Slot.End),
	)
	if err != nil {
		return nil, err
	}
	return appointments(rows), nil
}

func (r *SQLiteRepository) ScheduledReminders(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.queryRows(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE reminder_enabled = 1 AND reminder_status = ?
		ORDER BY reminder_scheduled_at ASC`, string(model.ReminderScheduled))
	if err != nil {
		return nil, err
	}
	return appointments(rows), nil
}

func (r *SQLiteRepository) queryRows(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0)
	for rows.Next() {
		item, scanErr := scanAppointment(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := r.loadChildren(ctx, &out[i].Appointment); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) loadChildren(ctx context.Context, a *model.Appointment) error {
	if !a.Visibility.All {
		rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM appointment_visibility WHERE appointment_id = ? ORDER BY user_id`, a.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		a.Visibility = model.VisibleTo(ids...)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name, email, phone FROM appointment_invitees WHERE appointment_id = ? ORDER BY position`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var inv model.Invitee
		if err := rows.Scan(&inv.Name, &inv.Email, &inv.Phone); err != nil {
			return err
		}
		a.Invitees = append(a.Invitees, inv)
	}
	return rows.Err()
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertRow(ctx context.Context, tx *sql.Tx, in Row) error {
	rem := reminderColumns(in.Reminder)
	created := in.CreatedAt
	if created.IsZero() {
		created = in.UpdatedAt
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.OwnerID, in.Date.String(), int(in.Start), int(in.End), boolInt(in.AllDay),
		in.Title, in.Description, in.Location, in.Color, string(in.Status),
		boolInt(in.Visibility.All), rem.enabled, rem.value, rem.unit, rem.status, rem.scheduledAt,
		rem.sentAt, rem.lastError, in.GoogleEventID, in.SeriesID, in.Version,
		mustTime(created), mustTime(in.UpdatedAt),
	)
	if err != nil {
		return err
	}
	return writeChildren(ctx, tx, in.Appointment)
}

func writeChildren(ctx context.Context, tx *sql.Tx, a model.Appointment) error {
	if !a.Visibility.All {
		for _, id := range a.Visibility.UserIDs {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO appointment_visibility (appointment_id, user_id) VALUES (?, ?)`, a.ID, id); err != nil {
				return err
			}
		}
	}
	for i, inv := range a.Invitees {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO appointment_invitees (appointment_id, position, name, email, phone)
			VALUES (?, ?, ?, ?, ?)`, a.ID, i, inv.Name, inv.Email, inv.Phone); err != nil {
			return err
		}
	}
	return nil
}

func appointments(rows []Row) []model.Appointment {
	out := make([]model.Appointment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Appointment)
	}
	return out
}

type reminderRow struct {
	enabled     int
	value       int
	unit        string
	status      string
	scheduledAt any
	sentAt      any
	lastError   string
}

func reminderColumns(r *model.Reminder) reminderRow {
	if r == nil {
		return reminderRow{}
	}
	return reminderRow{
		enabled:     boolInt(r.Enabled),
		value:       r.Value,
		unit:        string(r.Unit),
		status:      string(r.Status),
		scheduledAt: nullTime(r.ScheduledAt),
		sentAt:      nullTime(r.SentAt),
		lastError:   r.LastError,
	}
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func mustTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(s scanner) (Row, error) {
	var out Row
	var date, status string
	var start, end, allDay, visibleAll int
	var remEnabled, remValue int
	var remUnit, remStatus, remLastError string
	var remScheduled, remSent sql.NullString
	var created, updated string
	if err := s.Scan(
		&out.ID, &out.OwnerID, &date, &start, &end, &allDay, &out.Title, &out.Description, &out.Location, &out.Color, &status,
		&visibleAll, &remEnabled, &remValue, &remUnit, &remStatus, &remScheduled,
		&remSent, &remLastError, &out.GoogleEventID, &out.SeriesID, &out.Version, &created, &updated,
	); err != nil {
		return Row{}, err
	}
	d, err := timerange.ParseDate(date)
	if err != nil {
		return Row{}, err
	}
	out.Date = d
	out.Start = timerange.Clock(start)
	out.End = timerange.Clock(end)
	out.AllDay = allDay == 1
	out.Status = model.Status(status)
	out.Visibility.All = visibleAll == 1

	if remUnit != "" || remEnabled == 1 {
		rem := &model.Reminder{
			Enabled:   remEnabled == 1,
			Value:     remValue,
			Unit:      model.ReminderUnit(remUnit),
			Status:    model.ReminderStatus(remStatus),
			LastError: remLastError,
		}
		if rem.ScheduledAt, err = parseNullableTime(remScheduled); err != nil {
			return Row{}, err
		}
		if rem.SentAt, err = parseNullableTime(remSent); err != nil {
			return Row{}, err
		}
		out.Reminder = rem
	}

	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return Row{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return Row{}, err
	}
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
