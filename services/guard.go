package services

import (
	"context"
	"fmt"

	"taskboard/database"
)

// DeleteGuard refuses to delete parents that still have children.
// Nothing is cascaded.
type DeleteGuard struct {
	store database.Store
}

func NewDeleteGuard(store database.Store) DeleteGuard {
	return DeleteGuard{store: store}
}

func (g DeleteGuard) CanDeleteWorkspace(ctx context.Context, workspaceID string) (bool, error) {
	n, err := g.store.CountLists(ctx, workspaceID)
	if err != nil {
		return false, fmt.Errorf("count lists: %w", err)
	}
	return n == 0, nil
}

func (g DeleteGuard) CanDeleteList(ctx context.Context, listID string) (bool, error) {
	n, err := g.store.CountTasks(ctx, listID)
	if err != nil {
		return false, fmt.Errorf("count tasks: %w", err)
	}
	return n == 0, nil
}
