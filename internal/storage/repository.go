package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kabirpofficial/trackify/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to
	// the requesting user. Callers must not distinguish the two cases.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a user insert violates the email
	// uniqueness constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Export states for the async export pipeline.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportFailed  = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a new user row. The email uniqueness constraint maps to
// ErrDuplicateEmail.
func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, email, passwordHash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "email", email)

	return core.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// CreateCategory inserts a category owned by userID. Duplicate names within a
// user are allowed.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, userID, now, now,
	)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "category_id", id, "user_id", userID)

	return core.Category{ID: id, Name: name, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

// ListCategories returns all categories owned by userID ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, user_id, created_at, updated_at FROM categories WHERE user_id = ? ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategoryOwned returns the category only when it is owned by userID.
// A missing row and a row owned by someone else both yield ErrNotFound.
func (r *SQLiteRepository) GetCategoryOwned(ctx context.Context, categoryID, userID int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, created_at, updated_at FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID,
	).Scan(&c.ID, &c.Name, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateExpense inserts a new expense row and returns it with its id and
// timestamps filled in. Ownership of the category must already be verified.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, description, date, category_id, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Amount.Cents, e.Description, e.Date.String(), e.CategoryID, e.UserID, now, now,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", id,
		"user_id", e.UserID,
		"category_id", e.CategoryID,
		"amount_cents", e.Amount.Cents)

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return e, nil
}

// ListExpenses returns all expenses owned by userID with their category
// joined, most recent date first. Ties in date keep insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.amount_cents, e.description, e.date, e.category_id, e.user_id, e.created_at, e.updated_at,
		        c.id, c.name, c.user_id, c.created_at, c.updated_at
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?
		 ORDER BY e.date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpenseWithCategory(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// GetExpenseWithCategory loads a single expense with its category joined.
// Used by the export worker.
func (r *SQLiteRepository) GetExpenseWithCategory(ctx context.Context, id int64) (core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.amount_cents, e.description, e.date, e.category_id, e.user_id, e.created_at, e.updated_at,
		        c.id, c.name, c.user_id, c.created_at, c.updated_at
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.id = ?`,
		id,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Expense{}, fmt.Errorf("get expense: %w", err)
		}
		return core.Expense{}, ErrNotFound
	}
	return scanExpenseWithCategory(rows)
}

func scanExpenseWithCategory(rows *sql.Rows) (core.Expense, error) {
	var (
		e       core.Expense
		c       core.Category
		dateStr string
	)
	if err := rows.Scan(
		&e.ID, &e.Amount.Cents, &e.Description, &dateStr, &e.CategoryID, &e.UserID, &e.CreatedAt, &e.UpdatedAt,
		&c.ID, &c.Name, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	e.Date = date
	e.Category = &c
	return e, nil
}

// PendingExportExpense is the minimal row needed to re-enqueue an export.
type PendingExportExpense struct {
	ID       int64
	Attempts int64
}

// GetPendingExportExpenses returns expenses that have not been exported yet,
// oldest first.
func (r *SQLiteRepository) GetPendingExportExpenses(ctx context.Context, limit int) ([]PendingExportExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, export_attempts FROM expenses WHERE export_status = ? ORDER BY id ASC LIMIT ?`,
		ExportPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending export expenses: %w", err)
	}
	defer rows.Close()

	var pending []PendingExportExpense
	for rows.Next() {
		var p PendingExportExpense
		if err := rows.Scan(&p.ID, &p.Attempts); err != nil {
			return nil, fmt.Errorf("scan pending export expense: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkExported marks an expense as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_status = ?, updated_at = ? WHERE id = ?`,
		ExportDone, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as exported", "expense_id", id)
	return nil
}

// MarkExportError records a failed export attempt.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_status = ?, export_attempts = export_attempts + 1, updated_at = ? WHERE id = ?`,
		ExportFailed, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark expense export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with export error", "expense_id", id)
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
