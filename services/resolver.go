package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/database"
	"taskboard/models"
)

type ListChain struct {
	List      *models.List
	Workspace *models.Workspace
}

type TaskChain struct {
	Task      *models.Task
	List      *models.List
	Workspace *models.Workspace
}

// Scope carries the parent ids taken from the request path. Empty fields
// are not checked.
type Scope struct {
	WorkspaceID string
	ListID      string
}

func (s Scope) checkList(c *ListChain) error {
	if s.WorkspaceID != "" && c.Workspace.ID != s.WorkspaceID {
		return notFoundIn(LevelList, LevelWorkspace)
	}
	return nil
}

func (s Scope) checkTask(c *TaskChain) error {
	if s.WorkspaceID != "" && c.Workspace.ID != s.WorkspaceID {
		return notFoundIn(LevelTask, LevelWorkspace)
	}
	if s.ListID != "" && c.List.ID != s.ListID {
		return notFoundIn(LevelTask, LevelList)
	}
	return nil
}

// Resolver walks task -> list -> workspace with point lookups, stopping at
// the first missing link and reporting its level.
type Resolver struct {
	store database.Store
}

func NewResolver(store database.Store) Resolver {
	return Resolver{store: store}
}

func (r Resolver) Workspace(ctx context.Context, id string) (*models.Workspace, error) {
	ws, err := r.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, lookupError(err, LevelWorkspace)
	}
	return ws, nil
}

func (r Resolver) ListChain(ctx context.Context, listID string) (*ListChain, error) {
	l, err := r.store.GetList(ctx, listID)
	if err != nil {
		return nil, lookupError(err, LevelList)
	}
	ws, err := r.Workspace(ctx, l.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return &ListChain{List: l, Workspace: ws}, nil
}

func (r Resolver) TaskChain(ctx context.Context, taskID string) (*TaskChain, error) {
	t, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, lookupError(err, LevelTask)
	}
	lc, err := r.ListChain(ctx, t.ListID)
	if err != nil {
		return nil, err
	}
	return &TaskChain{Task: t, List: lc.List, Workspace: lc.Workspace}, nil
}

func lookupError(err error, level Level) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound(level)
	}
	return fmt.Errorf("load %s: %w", level, err)
}
