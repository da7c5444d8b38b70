// Package database holds the entity store contract and its backends.
//
// Every backend stores users, workspaces, lists and tasks keyed by opaque
// string ids. Writes touch a single document (or row); backends that can
// enforce name uniqueness or delete restrictions natively report violations
// through ErrDuplicate and ErrHasDependents.
package database

import (
	"context"
	"errors"

	"taskboard/models"
)

var (
	ErrNotFound      = errors.New("database: record not found")
	ErrDuplicate     = errors.New("database: duplicate name in scope")
	ErrHasDependents = errors.New("database: record has dependents")
)

// Store is the persistence contract used by the services layer.
//
// Get methods return ErrNotFound for missing ids. Find methods return an
// empty slice when nothing matches. Update methods apply only the non-nil
// fields of the patch and return the number of matched records.
type Store interface {
	InsertUser(ctx context.Context, u *models.User) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByCredential(ctx context.Context, credentialRef string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error

	InsertWorkspace(ctx context.Context, w *models.Workspace) (string, error)
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	FindWorkspaces(ctx context.Context, f WorkspaceFilter) ([]models.Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, p models.WorkspacePatch) (int64, error)
	DeleteWorkspace(ctx context.Context, id string) error

	InsertList(ctx context.Context, l *models.List) (string, error)
	GetList(ctx context.Context, id string) (*models.List, error)
	FindLists(ctx context.Context, f ListFilter) ([]models.List, error)
	UpdateList(ctx context.Context, id string, p models.ListPatch) (int64, error)
	DeleteList(ctx context.Context, id string) error
	CountLists(ctx context.Context, workspaceID string) (int64, error)

	InsertTask(ctx context.Context, t *models.Task) (string, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	FindTasks(ctx context.Context, f TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, p models.TaskPatch) (int64, error)
	DeleteTask(ctx context.Context, id string) error
	CountTasks(ctx context.Context, listID string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// WorkspaceFilter selects workspaces. Zero fields are ignored; Limit 0 means no limit.
// Results are ordered by creation time.
type WorkspaceFilter struct {
	OwnerUserID string
	NameKey     string
	ExcludeID   string
	Skip        int
	Limit       int
}

// ListFilter selects lists. Results are ordered by title.
type ListFilter struct {
	WorkspaceID string
	TitleKey    string
	ExcludeID   string
}

// TaskFilter selects tasks. A nil ListIDs matches every list; an empty
// non-nil slice matches nothing. Results are ordered by list id, then title.
type TaskFilter struct {
	ListIDs   []string
	TitleKey  string
	ExcludeID string
}

func (f TaskFilter) matchesNothing() bool {
	return f.ListIDs != nil && len(f.ListIDs) == 0
}
