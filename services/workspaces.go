package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/database"
	"taskboard/models"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// BoardService runs the workspace, list and task operations against one store.
type BoardService struct {
	store   database.Store
	resolve Resolver
	unique  Uniqueness
	guard   DeleteGuard
	views   Views
}

func NewBoardService(store database.Store) *BoardService {
	return &BoardService{
		store:   store,
		resolve: NewResolver(store),
		unique:  NewUniqueness(store),
		guard:   NewDeleteGuard(store),
		views:   NewViews(store),
	}
}

// Page selects a window of a listing. A zero Limit means DefaultPageLimit.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) normalize() (Page, error) {
	if p.Skip < 0 {
		return p, invalidf("skip must be greater than or equal to 0")
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return p, invalidf("limit must be between 1 and %d", MaxPageLimit)
	}
	return p, nil
}

// ownedWorkspace resolves a workspace and checks the actor owns it.
func (s *BoardService) ownedWorkspace(ctx context.Context, actor Actor, id string) (*models.Workspace, error) {
	ws, err := s.resolve.Workspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ws, actor); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *BoardService) CreateWorkspace(ctx context.Context, actor Actor, in models.WorkspaceInput) (*Result, error) {
	return finish(s.createWorkspace(ctx, actor, in))
}

func (s *BoardService) createWorkspace(ctx context.Context, actor Actor, in models.WorkspaceInput) (*Result, error) {
	in.Normalize()
	if err := models.Validate(in); err != nil {
		return nil, invalid(err)
	}
	if _, err := s.store.GetUser(ctx, actor.UserID); err != nil {
		return nil, lookupError(err, LevelUser)
	}
	taken, err := s.unique.WorkspaceName(ctx, actor.UserID, in.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicate(LevelWorkspace, in.Name)
	}

	id, err := s.store.InsertWorkspace(ctx, &models.Workspace{
		Name:        in.Name,
		Description: in.Description,
		OwnerUserID: actor.UserID,
	})
	if errors.Is(err, database.ErrDuplicate) {
		return nil, duplicate(LevelWorkspace, in.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}
	ws, err := s.resolve.Workspace(ctx, id)
	if err != nil {
		return nil, err
	}
	return succeed("Workspace created successfully", ws)
}

// ListWorkspaces returns the actor's workspaces in creation order. With all
// set it returns every workspace, which only admins may do.
func (s *BoardService) ListWorkspaces(ctx context.Context, actor Actor, page Page, all bool) (*Result, error) {
	return finish(s.listWorkspaces(ctx, actor, page, all))
}

func (s *BoardService) listWorkspaces(ctx context.Context, actor Actor, page Page, all bool) (*Result, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}
	filter := database.WorkspaceFilter{OwnerUserID: actor.UserID, Skip: page.Skip, Limit: page.Limit}
	if all {
		if !actor.Admin {
			return nil, &Failure{Code: CodeUnauthorized, Resource: LevelWorkspace, Message: "only administrators can list every workspace"}
		}
		filter.OwnerUserID = ""
	} else if actor.UserID == "" {
		return nil, notFound(LevelUser)
	}

	found, err := s.store.FindWorkspaces(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find workspaces: %w", err)
	}
	if len(found) == 0 {
		return succeed("No workspaces found", found)
	}
	return succeed("Workspaces retrieved successfully", found)
}

func (s *BoardService) GetWorkspace(ctx context.Context, actor Actor, id string) (*Result, error) {
	return finish(s.getWorkspace(ctx, actor, id))
}

func (s *BoardService) getWorkspace(ctx context.Context, actor Actor, id string) (*Result, error) {
	ws, err := s.ownedWorkspace(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return succeed("Workspace retrieved successfully", ws)
}

// GetWorkspaceBoard returns the workspace with its lists and their tasks.
func (s *BoardService) GetWorkspaceBoard(ctx context.Context, actor Actor, id string) (*Result, error) {
	return finish(s.getWorkspaceBoard(ctx, actor, id))
}

func (s *BoardService) getWorkspaceBoard(ctx context.Context, actor Actor, id string) (*Result, error) {
	ws, err := s.ownedWorkspace(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	board, err := s.views.WorkspaceBoard(ctx, ws)
	if err != nil {
		return nil, err
	}
	return succeed("Workspace retrieved successfully", board)
}

func (s *BoardService) UpdateWorkspace(ctx context.Context, actor Actor, id string, patch models.WorkspacePatch) (*Result, error) {
	return finish(s.updateWorkspace(ctx, actor, id, patch))
}

func (s *BoardService) updateWorkspace(ctx context.Context, actor Actor, id string, patch models.WorkspacePatch) (*Result, error) {
	patch.Normalize()
	if err := models.Validate(patch); err != nil {
		return nil, invalid(err)
	}
	ws, err := s.ownedWorkspace(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() || !patch.Changes(ws) {
		return nil, noChanges(LevelWorkspace)
	}
	if patch.Name != nil {
		taken, err := s.unique.WorkspaceName(ctx, ws.OwnerUserID, *patch.Name, ws.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, duplicate(LevelWorkspace, *patch.Name)
		}
	}

	matched, err := s.store.UpdateWorkspace(ctx, ws.ID, patch)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, duplicate(LevelWorkspace, *patch.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("update workspace: %w", err)
	}
	if matched == 0 {
		return nil, notFound(LevelWorkspace)
	}
	updated, err := s.resolve.Workspace(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	return succeed("Workspace updated successfully", updated)
}

// DeleteWorkspace removes an empty workspace. Workspaces that still hold
// lists are refused.
func (s *BoardService) DeleteWorkspace(ctx context.Context, actor Actor, id string) (*Result, error) {
	return finish(s.deleteWorkspace(ctx, actor, id))
}

func (s *BoardService) deleteWorkspace(ctx context.Context, actor Actor, id string) (*Result, error) {
	ws, err := s.ownedWorkspace(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	empty, err := s.guard.CanDeleteWorkspace(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, hasDependents(LevelWorkspace, LevelList)
	}

	switch err := s.store.DeleteWorkspace(ctx, ws.ID); {
	case errors.Is(err, database.ErrHasDependents):
		return nil, hasDependents(LevelWorkspace, LevelList)
	case errors.Is(err, database.ErrNotFound):
		return nil, notFound(LevelWorkspace)
	case err != nil:
		return nil, fmt.Errorf("delete workspace: %w", err)
	}
	return succeed("Workspace deleted successfully", nil)
}
