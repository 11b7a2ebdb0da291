package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobledger/backend/internal/models"
)

// RulesParser validates and decodes a stored rules document.
type RulesParser interface {
	Parse(raw []byte) (models.Rules, error)
}

type SettingsRepo struct {
	pool   *pgxpool.Pool
	parser RulesParser
}

func NewSettingsRepo(pool *pgxpool.Pool, parser RulesParser) *SettingsRepo {
	return &SettingsRepo{pool: pool, parser: parser}
}

const settingsSelect = `
	SELECT v.id, v.name, v.rules, v.notes, v.created_at, (a.version_id IS NOT NULL)
	FROM settings_versions v
	LEFT JOIN settings_active a ON a.version_id = v.id`

func (r *SettingsRepo) scan(row interface{ Scan(...any) error }) (*models.SettingsVersion, error) {
	var v models.SettingsVersion
	var raw []byte
	if err := row.Scan(&v.ID, &v.Name, &raw, &v.Notes, &v.CreatedAt, &v.IsActive); err != nil {
		return nil, MapError(err)
	}
	rules, err := r.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("settings version %d: %w", v.ID, err)
	}
	v.Rules = rules
	return &v, nil
}

func insertSettings(ctx context.Context, q Querier, v *models.SettingsVersion) error {
	raw, err := json.Marshal(v.Rules)
	if err != nil {
		return err
	}
	return q.QueryRow(ctx, `
		INSERT INTO settings_versions (name, rules, notes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, v.Name, raw, v.Notes).Scan(&v.ID, &v.CreatedAt)
}

// Create stores a new, inactive version.
func (r *SettingsRepo) Create(ctx context.Context, v *models.SettingsVersion) error {
	v.IsActive = false
	return insertSettings(ctx, r.pool, v)
}

func (r *SettingsRepo) GetByID(ctx context.Context, id int64) (*models.SettingsVersion, error) {
	return r.scan(r.pool.QueryRow(ctx, settingsSelect+` WHERE v.id = $1`, id))
}

// Active returns the active version, or ErrNotFound when none has been activated.
func (r *SettingsRepo) Active(ctx context.Context) (*models.SettingsVersion, error) {
	return r.scan(r.pool.QueryRow(ctx, settingsSelect+` WHERE a.version_id IS NOT NULL`))
}

func (r *SettingsRepo) List(ctx context.Context) ([]*models.SettingsVersion, error) {
	rows, err := r.pool.Query(ctx, settingsSelect+` ORDER BY v.created_at DESC, v.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.SettingsVersion{}
	for rows.Next() {
		v, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

func activateTx(ctx context.Context, tx pgx.Tx, id int64) error {
	var exists int64
	if err := tx.QueryRow(ctx, `SELECT id FROM settings_versions WHERE id = $1 FOR UPDATE`, id).Scan(&exists); err != nil {
		return MapError(err)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO settings_active (singleton, version_id) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET version_id = EXCLUDED.version_id
	`, id)
	return err
}

// Activate points the single active slot at id.
func (r *SettingsRepo) Activate(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := activateTx(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureActive creates and activates a version from rules when no version is active yet.
// It reports whether it created one.
func (r *SettingsRepo) EnsureActive(ctx context.Context, name string, rules models.Rules) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// Serializes concurrent first starts.
	if _, err := tx.Exec(ctx, `LOCK TABLE settings_active IN EXCLUSIVE MODE`); err != nil {
		return false, err
	}
	var current int64
	err = tx.QueryRow(ctx, `SELECT version_id FROM settings_active`).Scan(&current)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	v := &models.SettingsVersion{Name: name, Rules: rules}
	if err := insertSettings(ctx, tx, v); err != nil {
		return false, err
	}
	if err := activateTx(ctx, tx, v.ID); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *SettingsRepo) getRules(ctx context.Context, q Querier, versionID int64) (models.Rules, error) {
	var raw []byte
	if err := q.QueryRow(ctx, `SELECT rules FROM settings_versions WHERE id = $1`, versionID).Scan(&raw); err != nil {
		return models.Rules{}, MapError(err)
	}
	return r.parser.Parse(raw)
}

func (r *SettingsRepo) GetRules(ctx context.Context, versionID int64) (models.Rules, error) {
	return r.getRules(ctx, r.pool, versionID)
}

func (r *SettingsRepo) GetRulesTx(ctx context.Context, tx pgx.Tx, versionID int64) (models.Rules, error) {
	return r.getRules(ctx, tx, versionID)
}
