package services

import (
	"context"
	"fmt"

	"taskboard/database"
	"taskboard/models"
)

// Views composes the denormalized read shapes. It never writes.
type Views struct {
	store database.Store
}

func NewViews(store database.Store) Views {
	return Views{store: store}
}

// WorkspaceBoard nests the workspace's lists, each with its tasks.
func (v Views) WorkspaceBoard(ctx context.Context, ws *models.Workspace) (*models.WorkspaceBoard, error) {
	lists, err := v.store.FindLists(ctx, database.ListFilter{WorkspaceID: ws.ID})
	if err != nil {
		return nil, fmt.Errorf("board lists: %w", err)
	}
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	tasks, err := v.store.FindTasks(ctx, database.TaskFilter{ListIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("board tasks: %w", err)
	}

	byList := make(map[string][]models.Task, len(lists))
	for _, t := range tasks {
		byList[t.ListID] = append(byList[t.ListID], t)
	}
	board := &models.WorkspaceBoard{Workspace: *ws, Lists: make([]models.ListWithTasks, 0, len(lists))}
	for _, l := range lists {
		children := byList[l.ID]
		if children == nil {
			children = []models.Task{}
		}
		board.Lists = append(board.Lists, models.ListWithTasks{List: l, Tasks: children})
	}
	return board, nil
}

// TasksByWorkspace lists every task of the workspace with its list title,
// ordered by list id.
func (v Views) TasksByWorkspace(ctx context.Context, workspaceID string) ([]models.TaskWithList, error) {
	lists, err := v.store.FindLists(ctx, database.ListFilter{WorkspaceID: workspaceID})
	if err != nil {
		return nil, fmt.Errorf("workspace lists: %w", err)
	}
	titles := make(map[string]string, len(lists))
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		titles[l.ID] = l.Title
		ids = append(ids, l.ID)
	}
	tasks, err := v.store.FindTasks(ctx, database.TaskFilter{ListIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("workspace tasks: %w", err)
	}
	out := make([]models.TaskWithList, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.TaskWithList{Task: t, ListTitle: titles[t.ListID]})
	}
	return out, nil
}

func withListTitle(t *models.Task, l *models.List) models.TaskWithList {
	return models.TaskWithList{Task: *t, ListTitle: l.Title}
}
