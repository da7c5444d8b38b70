package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/database"
	"taskboard/models"
)

func (s *BoardService) ownedTask(ctx context.Context, actor Actor, scope Scope, taskID string) (*TaskChain, error) {
	chain, err := s.resolve.TaskChain(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := scope.checkTask(chain); err != nil {
		return nil, err
	}
	if err := Authorize(chain.Workspace, actor); err != nil {
		return nil, err
	}
	return chain, nil
}

// CreateTask adds a task to a list. The title must be unique across the
// whole workspace, not just the list.
func (s *BoardService) CreateTask(ctx context.Context, actor Actor, scope Scope, listID string, in models.TaskInput) (*Result, error) {
	return finish(s.createTask(ctx, actor, scope, listID, in))
}

func (s *BoardService) createTask(ctx context.Context, actor Actor, scope Scope, listID string, in models.TaskInput) (*Result, error) {
	in.Normalize()
	if err := models.Validate(in); err != nil {
		return nil, invalid(err)
	}
	chain, err := s.ownedList(ctx, actor, scope, listID)
	if err != nil {
		return nil, err
	}
	taken, err := s.unique.TaskTitle(ctx, chain.Workspace.ID, in.Title, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicate(LevelTask, in.Title)
	}

	id, err := s.store.InsertTask(ctx, &models.Task{
		Title:       in.Title,
		Description: in.Description,
		ListID:      chain.List.ID,
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound(LevelList)
	}
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, lookupError(err, LevelTask)
	}
	return succeed("Task created successfully", withListTitle(t, chain.List))
}

func (s *BoardService) GetTask(ctx context.Context, actor Actor, scope Scope, taskID string) (*Result, error) {
	return finish(s.getTask(ctx, actor, scope, taskID))
}

func (s *BoardService) getTask(ctx context.Context, actor Actor, scope Scope, taskID string) (*Result, error) {
	chain, err := s.ownedTask(ctx, actor, scope, taskID)
	if err != nil {
		return nil, err
	}
	return succeed("Task retrieved successfully", withListTitle(chain.Task, chain.List))
}

// ListTasks returns every task in the workspace with the title of its list.
func (s *BoardService) ListTasks(ctx context.Context, actor Actor, workspaceID string) (*Result, error) {
	return finish(s.listTasks(ctx, actor, workspaceID))
}

func (s *BoardService) listTasks(ctx context.Context, actor Actor, workspaceID string) (*Result, error) {
	ws, err := s.ownedWorkspace(ctx, actor, workspaceID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.views.TasksByWorkspace(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	return succeed("Tasks retrieved successfully", tasks)
}

func (s *BoardService) UpdateTask(ctx context.Context, actor Actor, scope Scope, taskID string, patch models.TaskPatch) (*Result, error) {
	return finish(s.updateTask(ctx, actor, scope, taskID, patch))
}

func (s *BoardService) updateTask(ctx context.Context, actor Actor, scope Scope, taskID string, patch models.TaskPatch) (*Result, error) {
	patch.ListID = nil
	patch.Normalize()
	if err := models.Validate(patch); err != nil {
		return nil, invalid(err)
	}
	chain, err := s.ownedTask(ctx, actor, scope, taskID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() || !patch.Changes(chain.Task) {
		return nil, noChanges(LevelTask)
	}
	if patch.Title != nil {
		taken, err := s.unique.TaskTitle(ctx, chain.Workspace.ID, *patch.Title, chain.Task.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, duplicate(LevelTask, *patch.Title)
		}
	}
	return s.applyTaskPatch(ctx, chain.Task.ID, patch, chain.List, "Task updated successfully")
}

// MoveTask reassigns a task to another list of the same workspace.
func (s *BoardService) MoveTask(ctx context.Context, actor Actor, scope Scope, taskID string, in models.MoveTaskInput) (*Result, error) {
	return finish(s.moveTask(ctx, actor, scope, taskID, in))
}

func (s *BoardService) moveTask(ctx context.Context, actor Actor, scope Scope, taskID string, in models.MoveTaskInput) (*Result, error) {
	if err := models.Validate(in); err != nil {
		return nil, invalid(err)
	}
	chain, err := s.ownedTask(ctx, actor, scope, taskID)
	if err != nil {
		return nil, err
	}
	if in.NewListID == chain.Task.ListID {
		return nil, noChanges(LevelTask)
	}
	target, err := s.resolve.ListChain(ctx, in.NewListID)
	if err != nil {
		return nil, err
	}
	if target.Workspace.ID != chain.Workspace.ID {
		return nil, invalidf("lists are not in the same workspace")
	}

	patch := models.TaskPatch{ListID: &target.List.ID}
	return s.applyTaskPatch(ctx, chain.Task.ID, patch, target.List, "Task moved successfully")
}

func (s *BoardService) applyTaskPatch(ctx context.Context, taskID string, patch models.TaskPatch, list *models.List, message string) (*Result, error) {
	matched, err := s.store.UpdateTask(ctx, taskID, patch)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound(LevelList)
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if matched == 0 {
		return nil, notFound(LevelTask)
	}
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, lookupError(err, LevelTask)
	}
	return succeed(message, withListTitle(t, list))
}

func (s *BoardService) DeleteTask(ctx context.Context, actor Actor, scope Scope, taskID string) (*Result, error) {
	return finish(s.deleteTask(ctx, actor, scope, taskID))
}

func (s *BoardService) deleteTask(ctx context.Context, actor Actor, scope Scope, taskID string) (*Result, error) {
	chain, err := s.ownedTask(ctx, actor, scope, taskID)
	if err != nil {
		return nil, err
	}
	switch err := s.store.DeleteTask(ctx, chain.Task.ID); {
	case errors.Is(err, database.ErrNotFound):
		return nil, notFound(LevelTask)
	case err != nil:
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return succeed("Task deleted successfully", nil)
}
