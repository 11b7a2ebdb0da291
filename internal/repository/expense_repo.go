package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobledger/backend/internal/models"
)

type ExpenseRepo struct {
	pool *pgxpool.Pool
}

func NewExpenseRepo(pool *pgxpool.Pool) *ExpenseRepo {
	return &ExpenseRepo{pool: pool}
}

const expenseColumns = `id, expense_code, expense_date, amount, category, description, vendor, reference, notes, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	var category string
	err := row.Scan(&e.ID, &e.Code, &e.ExpenseDate, &e.Amount, &category, &e.Description, &e.Vendor, &e.Reference, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, MapError(err)
	}
	if e.Category, err = models.ParseExpenseCategory(category); err != nil {
		return nil, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	return &e, nil
}

func (r *ExpenseRepo) Create(ctx context.Context, e *models.Expense) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (expense_code, expense_date, amount, category, description, vendor, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, e.Code, e.ExpenseDate, e.Amount, string(e.Category), e.Description, e.Vendor, e.Reference, e.Notes).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return MapError(err)
}

func (r *ExpenseRepo) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
}

func (r *ExpenseRepo) Update(ctx context.Context, e *models.Expense) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE expenses SET expense_code = $2, expense_date = $3, amount = $4, category = $5, description = $6,
			vendor = $7, reference = $8, notes = $9, updated_at = now()
		WHERE id = $1
	`, e.ID, e.Code, e.ExpenseDate, e.Amount, string(e.Category), e.Description, e.Vendor, e.Reference, e.Notes))
}

func (r *ExpenseRepo) Delete(ctx context.Context, id int64) error {
	return affectedOne(r.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1", id))
}

// List returns expenses matching f, newest first. Both date bounds are inclusive.
func (r *ExpenseRepo) List(ctx context.Context, f models.ExpenseFilter) ([]*models.Expense, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("expense_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("expense_date <= $%d", *f.To)
	}
	if f.Category != nil {
		add("category = $%d", string(*f.Category))
	}
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY expense_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *ExpenseRepo) ListCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, `SELECT expense_code FROM expenses`)
}
