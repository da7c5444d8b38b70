package services

import (
	"context"
	"fmt"

	"taskboard/database"
	"taskboard/models"
)

// Uniqueness reports case-insensitive name collisions inside a parent scope.
// excludeID skips the entity being renamed.
type Uniqueness struct {
	store database.Store
}

func NewUniqueness(store database.Store) Uniqueness {
	return Uniqueness{store: store}
}

func (u Uniqueness) WorkspaceName(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	found, err := u.store.FindWorkspaces(ctx, database.WorkspaceFilter{
		OwnerUserID: ownerID,
		NameKey:     models.NameKey(name),
		ExcludeID:   excludeID,
		Limit:       1,
	})
	if err != nil {
		return false, fmt.Errorf("check workspace name: %w", err)
	}
	return len(found) > 0, nil
}

func (u Uniqueness) ListTitle(ctx context.Context, workspaceID, title, excludeID string) (bool, error) {
	found, err := u.store.FindLists(ctx, database.ListFilter{
		WorkspaceID: workspaceID,
		TitleKey:    models.NameKey(title),
		ExcludeID:   excludeID,
	})
	if err != nil {
		return false, fmt.Errorf("check list title: %w", err)
	}
	return len(found) > 0, nil
}

// TaskTitle checks every list of the workspace, not only the task's own list.
func (u Uniqueness) TaskTitle(ctx context.Context, workspaceID, title, excludeID string) (bool, error) {
	ids, err := listIDs(ctx, u.store, workspaceID)
	if err != nil {
		return false, fmt.Errorf("check task title: %w", err)
	}
	found, err := u.store.FindTasks(ctx, database.TaskFilter{
		ListIDs:   ids,
		TitleKey:  models.NameKey(title),
		ExcludeID: excludeID,
	})
	if err != nil {
		return false, fmt.Errorf("check task title: %w", err)
	}
	return len(found) > 0, nil
}

func listIDs(ctx context.Context, store database.Store, workspaceID string) ([]string, error) {
	lists, err := store.FindLists(ctx, database.ListFilter{WorkspaceID: workspaceID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	return ids, nil
}
