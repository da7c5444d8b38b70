package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskboard/models"
)

const (
	userColumns      = "id, name, email, active, admin, credential_ref, created_at"
	workspaceColumns = "id, name, name_key, description, id_user, created_at, updated_at"
	listColumns      = "id, title, title_key, description, id_workspace, created_at, updated_at"
	taskColumns      = "id, title, title_key, description, id_list, created_at, updated_at"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on PostgreSQL. Name uniqueness and delete
// restrictions are enforced by the schema in migrations/.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Active, &u.Admin, &u.CredentialRef, &u.CreatedAt)
	return &u, err
}

func scanWorkspace(row rowScanner) (*models.Workspace, error) {
	var w models.Workspace
	err := row.Scan(&w.ID, &w.Name, &w.NameKey, &w.Description, &w.OwnerUserID, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func scanList(row rowScanner) (*models.List, error) {
	var l models.List
	err := row.Scan(&l.ID, &l.Title, &l.TitleKey, &l.Description, &l.WorkspaceID, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.TitleKey, &t.Description, &t.ListID, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

// mapPQError translates constraint violations into store sentinels. A foreign
// key violation means a missing parent on writes and live children on deletes,
// so the caller picks which sentinel it becomes.
func mapPQError(err error, onForeignKey error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return ErrDuplicate
		case "foreign_key_violation":
			return onForeignKey
		}
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// sqlParams numbers positional parameters as conditions are added.
type sqlParams struct {
	clauses []string
	args    []any
}

func (p *sqlParams) add(format string, v any) {
	p.args = append(p.args, v)
	p.clauses = append(p.clauses, fmt.Sprintf(format, len(p.args)))
}

func (p *sqlParams) next(v any) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

func (p *sqlParams) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

func (s *PostgresStore) InsertUser(ctx context.Context, u *models.User) (string, error) {
	id := uuid.NewString()
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, u.Name, u.Email, u.Active, u.Admin, u.CredentialRef, created)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", mapPQError(err, ErrNotFound))
	}
	return id, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *PostgresStore) FindUserByCredential(ctx context.Context, credentialRef string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE credential_ref = $1`, credentialRef))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "users", id)
}

func (s *PostgresStore) InsertWorkspace(ctx context.Context, w *models.Workspace) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (`+workspaceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, w.Name, models.NameKey(w.Name), w.Description, w.OwnerUserID, now)
	if err != nil {
		return "", fmt.Errorf("insert workspace: %w", mapPQError(err, ErrNotFound))
	}
	return id, nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	w, err := scanWorkspace(s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

func (s *PostgresStore) FindWorkspaces(ctx context.Context, f WorkspaceFilter) ([]models.Workspace, error) {
	var p sqlParams
	if f.OwnerUserID != "" {
		p.add("id_user = $%d", f.OwnerUserID)
	}
	if f.NameKey != "" {
		p.add("name_key = $%d", f.NameKey)
	}
	if f.ExcludeID != "" {
		p.add("id <> $%d", f.ExcludeID)
	}
	query := `SELECT ` + workspaceColumns + ` FROM workspaces` + p.where() + ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += " LIMIT " + p.next(f.Limit)
	}
	if f.Skip > 0 {
		query += " OFFSET " + p.next(f.Skip)
	}

	rows, err := s.db.QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, fmt.Errorf("find workspaces: %w", err)
	}
	defer rows.Close()

	out := []models.Workspace{}
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateWorkspace(ctx context.Context, id string, patch models.WorkspacePatch) (int64, error) {
	var p sqlParams
	if patch.Name != nil {
		p.add("name = $%d", *patch.Name)
		p.add("name_key = $%d", models.NameKey(*patch.Name))
	}
	if patch.Description != nil {
		p.add("description = $%d", *patch.Description)
	}
	return s.updateByID(ctx, "workspaces", id, &p)
}

func (s *PostgresStore) DeleteWorkspace(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "workspaces", id)
}

func (s *PostgresStore) InsertList(ctx context.Context, l *models.List) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lists (`+listColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, l.Title, models.NameKey(l.Title), l.Description, l.WorkspaceID, now)
	if err != nil {
		return "", fmt.Errorf("insert list: %w", mapPQError(err, ErrNotFound))
	}
	return id, nil
}

func (s *PostgresStore) GetList(ctx context.Context, id string) (*models.List, error) {
	l, err := scanList(s.db.QueryRowContext(ctx, `SELECT `+listColumns+` FROM lists WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

func (s *PostgresStore) FindLists(ctx context.Context, f ListFilter) ([]models.List, error) {
	var p sqlParams
	if f.WorkspaceID != "" {
		p.add("id_workspace = $%d", f.WorkspaceID)
	}
	if f.TitleKey != "" {
		p.add("title_key = $%d", f.TitleKey)
	}
	if f.ExcludeID != "" {
		p.add("id <> $%d", f.ExcludeID)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists`+p.where()+` ORDER BY title, id`, p.args...)
	if err != nil {
		return nil, fmt.Errorf("find lists: %w", err)
	}
	defer rows.Close()

	out := []models.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateList(ctx context.Context, id string, patch models.ListPatch) (int64, error) {
	var p sqlParams
	if patch.Title != nil {
		p.add("title = $%d", *patch.Title)
		p.add("title_key = $%d", models.NameKey(*patch.Title))
	}
	if patch.Description != nil {
		p.add("description = $%d", *patch.Description)
	}
	return s.updateByID(ctx, "lists", id, &p)
}

func (s *PostgresStore) DeleteList(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "lists", id)
}

func (s *PostgresStore) CountLists(ctx context.Context, workspaceID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM lists WHERE id_workspace = $1`, workspaceID)
}

func (s *PostgresStore) InsertTask(ctx context.Context, t *models.Task) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, t.Title, models.NameKey(t.Title), t.Description, t.ListID, now)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", mapPQError(err, ErrNotFound))
	}
	return id, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *PostgresStore) FindTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	out := []models.Task{}
	if f.matchesNothing() {
		return out, nil
	}
	var p sqlParams
	if f.ListIDs != nil {
		p.add("id_list = ANY($%d)", pq.Array(f.ListIDs))
	}
	if f.TitleKey != "" {
		p.add("title_key = $%d", f.TitleKey)
	}
	if f.ExcludeID != "" {
		p.add("id <> $%d", f.ExcludeID)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks`+p.where()+` ORDER BY id_list, title, id`, p.args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (int64, error) {
	var p sqlParams
	if patch.Title != nil {
		p.add("title = $%d", *patch.Title)
		p.add("title_key = $%d", models.NameKey(*patch.Title))
	}
	if patch.Description != nil {
		p.add("description = $%d", *patch.Description)
	}
	if patch.ListID != nil {
		p.add("id_list = $%d", *patch.ListID)
	}
	return s.updateByID(ctx, "tasks", id, &p)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tasks", id)
}

func (s *PostgresStore) CountTasks(ctx context.Context, listID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM tasks WHERE id_list = $1`, listID)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// updateByID applies the collected SET clauses and bumps updated_at.
// Table names come from this file only.
func (s *PostgresStore) updateByID(ctx context.Context, table, id string, p *sqlParams) (int64, error) {
	sets := append(p.clauses, "updated_at = "+p.next(time.Now().UTC()))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", table, strings.Join(sets, ", "), p.next(id))

	res, err := s.db.ExecContext(ctx, query, p.args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, mapPQError(err, ErrNotFound))
	}
	return res.RowsAffected()
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, mapPQError(err, ErrHasDependents))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) count(ctx context.Context, query string, arg any) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
