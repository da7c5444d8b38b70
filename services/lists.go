package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/database"
	"taskboard/models"
)

// ownedList resolves the list chain, checks it against the path scope and
// authorizes the actor on the workspace at its top.
func (s *BoardService) ownedList(ctx context.Context, actor Actor, scope Scope, listID string) (*ListChain, error) {
	chain, err := s.resolve.ListChain(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := scope.checkList(chain); err != nil {
		return nil, err
	}
	if err := Authorize(chain.Workspace, actor); err != nil {
		return nil, err
	}
	return chain, nil
}

func (s *BoardService) CreateList(ctx context.Context, actor Actor, workspaceID string, in models.ListInput) (*Result, error) {
	return finish(s.createList(ctx, actor, workspaceID, in))
}

func (s *BoardService) createList(ctx context.Context, actor Actor, workspaceID string, in models.ListInput) (*Result, error) {
	in.Normalize()
	if err := models.Validate(in); err != nil {
		return nil, invalid(err)
	}
	ws, err := s.ownedWorkspace(ctx, actor, workspaceID)
	if err != nil {
		return nil, err
	}
	taken, err := s.unique.ListTitle(ctx, ws.ID, in.Title, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicate(LevelList, in.Title)
	}

	id, err := s.store.InsertList(ctx, &models.List{
		Title:       in.Title,
		Description: in.Description,
		WorkspaceID: ws.ID,
	})
	switch {
	case errors.Is(err, database.ErrDuplicate):
		return nil, duplicate(LevelList, in.Title)
	case errors.Is(err, database.ErrNotFound):
		return nil, notFound(LevelWorkspace)
	case err != nil:
		return nil, fmt.Errorf("insert list: %w", err)
	}
	l, err := s.store.GetList(ctx, id)
	if err != nil {
		return nil, lookupError(err, LevelList)
	}
	return succeed("List created successfully", l)
}

// ListLists returns the workspace's lists ordered by title.
func (s *BoardService) ListLists(ctx context.Context, actor Actor, workspaceID string) (*Result, error) {
	return finish(s.listLists(ctx, actor, workspaceID))
}

func (s *BoardService) listLists(ctx context.Context, actor Actor, workspaceID string) (*Result, error) {
	ws, err := s.ownedWorkspace(ctx, actor, workspaceID)
	if err != nil {
		return nil, err
	}
	lists, err := s.store.FindLists(ctx, database.ListFilter{WorkspaceID: ws.ID})
	if err != nil {
		return nil, fmt.Errorf("find lists: %w", err)
	}
	return succeed("Lists retrieved successfully", lists)
}

func (s *BoardService) GetList(ctx context.Context, actor Actor, scope Scope, listID string) (*Result, error) {
	return finish(s.getList(ctx, actor, scope, listID))
}

func (s *BoardService) getList(ctx context.Context, actor Actor, scope Scope, listID string) (*Result, error) {
	chain, err := s.ownedList(ctx, actor, scope, listID)
	if err != nil {
		return nil, err
	}
	return succeed("List retrieved successfully", chain.List)
}

func (s *BoardService) UpdateList(ctx context.Context, actor Actor, scope Scope, listID string, patch models.ListPatch) (*Result, error) {
	return finish(s.updateList(ctx, actor, scope, listID, patch))
}

func (s *BoardService) updateList(ctx context.Context, actor Actor, scope Scope, listID string, patch models.ListPatch) (*Result, error) {
	patch.Normalize()
	if err := models.Validate(patch); err != nil {
		return nil, invalid(err)
	}
	chain, err := s.ownedList(ctx, actor, scope, listID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() || !patch.Changes(chain.List) {
		return nil, noChanges(LevelList)
	}
	if patch.Title != nil {
		taken, err := s.unique.ListTitle(ctx, chain.Workspace.ID, *patch.Title, chain.List.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, duplicate(LevelList, *patch.Title)
		}
	}

	matched, err := s.store.UpdateList(ctx, chain.List.ID, patch)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, duplicate(LevelList, *patch.Title)
	}
	if err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	if matched == 0 {
		return nil, notFound(LevelList)
	}
	l, err := s.store.GetList(ctx, chain.List.ID)
	if err != nil {
		return nil, lookupError(err, LevelList)
	}
	return succeed("List updated successfully", l)
}

func (s *BoardService) DeleteList(ctx context.Context, actor Actor, scope Scope, listID string) (*Result, error) {
	return finish(s.deleteList(ctx, actor, scope, listID))
}

func (s *BoardService) deleteList(ctx context.Context, actor Actor, scope Scope, listID string) (*Result, error) {
	chain, err := s.ownedList(ctx, actor, scope, listID)
	if err != nil {
		return nil, err
	}
	empty, err := s.guard.CanDeleteList(ctx, chain.List.ID)
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, hasDependents(LevelList, LevelTask)
	}

	switch err := s.store.DeleteList(ctx, chain.List.ID); {
	case errors.Is(err, database.ErrHasDependents):
		return nil, hasDependents(LevelList, LevelTask)
	case errors.Is(err, database.ErrNotFound):
		return nil, notFound(LevelList)
	case err != nil:
		return nil, fmt.Errorf("delete list: %w", err)
	}
	return succeed("List deleted successfully", nil)
}
