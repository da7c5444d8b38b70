package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/database"
	"taskboard/models"
)

type fixture struct {
	ctx   context.Context
	store *database.MemoryStore
	svc   *BoardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	return &fixture{ctx: context.Background(), store: store, svc: NewBoardService(store)}
}

func (f *fixture) user(t *testing.T, name string) Actor {
	t.Helper()
	id, err := f.store.InsertUser(f.ctx, &models.User{Name: name, Email: name + "@example.com", Active: true, CredentialRef: "uid-" + name})
	require.NoError(t, err)
	return Actor{UserID: id}
}

func (f *fixture) workspace(t *testing.T, actor Actor, name string) *models.Workspace {
	t.Helper()
	res, err := f.svc.CreateWorkspace(f.ctx, actor, models.WorkspaceInput{Name: name})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Data.(*models.Workspace)
}

func (f *fixture) list(t *testing.T, actor Actor, workspaceID, title string) *models.List {
	t.Helper()
	res, err := f.svc.CreateList(f.ctx, actor, workspaceID, models.ListInput{Title: title})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Data.(*models.List)
}

func (f *fixture) task(t *testing.T, actor Actor, l *models.List, title string) models.TaskWithList {
	t.Helper()
	res, err := f.svc.CreateTask(f.ctx, actor, Scope{WorkspaceID: l.WorkspaceID}, l.ID, models.TaskInput{Title: title})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res.Data.(models.TaskWithList)
}

func ptr(s string) *string { return &s }

func assertFailure(t *testing.T, res *Result, err error, code Code, level Level) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, code, res.Code, res.Message)
	if level != "" {
		assert.Equal(t, level, res.Resource)
	}
	assert.Nil(t, res.Data)
}

func TestWorkspaceNamesAreUniquePerOwner(t *testing.T) {
	f := newFixture(t)
	u1, u2 := f.user(t, "one"), f.user(t, "two")

	eng := f.workspace(t, u1, "Eng")
	assert.Equal(t, u1.UserID, eng.OwnerUserID)

	res, err := f.svc.CreateWorkspace(f.ctx, u1, models.WorkspaceInput{Name: "eng"})
	assertFailure(t, res, err, CodeDuplicateName, LevelWorkspace)

	f.workspace(t, u2, "Eng")

	ops := f.workspace(t, u1, "Ops")
	res, err = f.svc.UpdateWorkspace(f.ctx, u1, ops.ID, models.WorkspacePatch{Name: ptr("ENG")})
	assertFailure(t, res, err, CodeDuplicateName, LevelWorkspace)

	res, err = f.svc.UpdateWorkspace(f.ctx, u1, eng.ID, models.WorkspacePatch{Name: ptr("ENG")})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "ENG", res.Data.(*models.Workspace).Name)
}

func TestListTitlesAreUniquePerWorkspace(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w1 := f.workspace(t, u, "First")
	w2 := f.workspace(t, u, "Second")

	f.list(t, u, w1.ID, "Todo")
	res, err := f.svc.CreateList(f.ctx, u, w1.ID, models.ListInput{Title: "TODO"})
	assertFailure(t, res, err, CodeDuplicateName, LevelList)

	f.list(t, u, w2.ID, "Todo")
	f.list(t, u, w1.ID, "In-progress_2")
}

func TestTaskTitlesAreUniqueAcrossTheWorkspace(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "Home")
	a := f.list(t, u, w.ID, "A")
	b := f.list(t, u, w.ID, "B")

	x := f.task(t, u, a, "X")
	res, err := f.svc.CreateTask(f.ctx, u, Scope{WorkspaceID: w.ID}, b.ID, models.TaskInput{Title: "x"})
	assertFailure(t, res, err, CodeDuplicateName, LevelTask)

	other := f.workspace(t, u, "Elsewhere")
	f.task(t, u, f.list(t, u, other.ID, "A"), "x")

	y := f.task(t, u, b, "Y")
	res, err = f.svc.UpdateTask(f.ctx, u, Scope{}, y.ID, models.TaskPatch{Title: ptr("X")})
	assertFailure(t, res, err, CodeDuplicateName, LevelTask)

	res, err = f.svc.UpdateTask(f.ctx, u, Scope{}, x.ID, models.TaskPatch{Title: ptr("x")})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
}

func TestNonOwnerIsRejectedAtEveryLevel(t *testing.T) {
	f := newFixture(t)
	owner, intruder := f.user(t, "owner"), f.user(t, "intruder")
	w := f.workspace(t, owner, "Private")
	l1 := f.list(t, owner, w.ID, "L1")
	l2 := f.list(t, owner, w.ID, "L2")
	task := f.task(t, owner, l1, "Secret")
	scope := Scope{WorkspaceID: w.ID}
	taskScope := Scope{WorkspaceID: w.ID, ListID: l1.ID}

	checks := map[string]func() (*Result, error){
		"rename list": func() (*Result, error) {
			return f.svc.UpdateList(f.ctx, intruder, scope, l1.ID, models.ListPatch{Title: ptr("Mine")})
		},
		"get list":         func() (*Result, error) { return f.svc.GetList(f.ctx, intruder, scope, l1.ID) },
		"delete list":      func() (*Result, error) { return f.svc.DeleteList(f.ctx, intruder, scope, l2.ID) },
		"create list":      func() (*Result, error) { return f.svc.CreateList(f.ctx, intruder, w.ID, models.ListInput{Title: "New"}) },
		"list lists":       func() (*Result, error) { return f.svc.ListLists(f.ctx, intruder, w.ID) },
		"get workspace":    func() (*Result, error) { return f.svc.GetWorkspace(f.ctx, intruder, w.ID) },
		"board":            func() (*Result, error) { return f.svc.GetWorkspaceBoard(f.ctx, intruder, w.ID) },
		"delete workspace": func() (*Result, error) { return f.svc.DeleteWorkspace(f.ctx, intruder, w.ID) },
		"rename workspace": func() (*Result, error) {
			return f.svc.UpdateWorkspace(f.ctx, intruder, w.ID, models.WorkspacePatch{Name: ptr("Taken")})
		},
		"create task": func() (*Result, error) {
			return f.svc.CreateTask(f.ctx, intruder, scope, l1.ID, models.TaskInput{Title: "Sneaky"})
		},
		"get task":    func() (*Result, error) { return f.svc.GetTask(f.ctx, intruder, taskScope, task.ID) },
		"list tasks":  func() (*Result, error) { return f.svc.ListTasks(f.ctx, intruder, w.ID) },
		"delete task": func() (*Result, error) { return f.svc.DeleteTask(f.ctx, intruder, taskScope, task.ID) },
		"update task": func() (*Result, error) {
			return f.svc.UpdateTask(f.ctx, intruder, taskScope, task.ID, models.TaskPatch{Title: ptr("Mine")})
		},
		"move task": func() (*Result, error) {
			return f.svc.MoveTask(f.ctx, intruder, taskScope, task.ID, models.MoveTaskInput{NewListID: l2.ID})
		},
	}
	for name, call := range checks {
		t.Run(name, func(t *testing.T) {
			res, err := call()
			assertFailure(t, res, err, CodeUnauthorized, LevelWorkspace)
		})
	}

	got, err := f.store.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, l1.ID, got.ListID)
	assert.Equal(t, "Secret", got.Title)
}

func TestDeletesAreRefusedWhileChildrenExist(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "W")
	l1 := f.list(t, u, w.ID, "L1")
	t1 := f.task(t, u, l1, "T1")
	scope := Scope{WorkspaceID: w.ID}

	res, err := f.svc.DeleteWorkspace(f.ctx, u, w.ID)
	assertFailure(t, res, err, CodeHasDependents, LevelWorkspace)

	res, err = f.svc.DeleteList(f.ctx, u, scope, l1.ID)
	assertFailure(t, res, err, CodeHasDependents, LevelList)

	res, err = f.svc.DeleteTask(f.ctx, u, Scope{WorkspaceID: w.ID, ListID: l1.ID}, t1.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	res, err = f.svc.DeleteList(f.ctx, u, scope, l1.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	res, err = f.svc.DeleteWorkspace(f.ctx, u, w.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	res, err = f.svc.GetWorkspace(f.ctx, u, w.ID)
	assertFailure(t, res, err, CodeNotFound, LevelWorkspace)
}

func TestMoveTask(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "mover")
	w := f.workspace(t, u, "Board")
	todo := f.list(t, u, w.ID, "Todo")
	done := f.list(t, u, w.ID, "Done")
	elsewhere := f.list(t, u, f.workspace(t, u, "Other").ID, "Todo")
	task := f.task(t, u, todo, "Ship it")
	scope := Scope{WorkspaceID: w.ID, ListID: todo.ID}

	t.Run("other workspace", func(t *testing.T) {
		res, err := f.svc.MoveTask(f.ctx, u, scope, task.ID, models.MoveTaskInput{NewListID: elsewhere.ID})
		assertFailure(t, res, err, CodeValidation, "")
		assert.Equal(t, "lists are not in the same workspace", res.Message)
	})

	t.Run("same list", func(t *testing.T) {
		res, err := f.svc.MoveTask(f.ctx, u, scope, task.ID, models.MoveTaskInput{NewListID: todo.ID})
		assertFailure(t, res, err, CodeNoChanges, LevelTask)
	})

	t.Run("missing list", func(t *testing.T) {
		res, err := f.svc.MoveTask(f.ctx, u, scope, task.ID, models.MoveTaskInput{NewListID: "nope"})
		assertFailure(t, res, err, CodeNotFound, LevelList)
	})

	t.Run("empty target", func(t *testing.T) {
		res, err := f.svc.MoveTask(f.ctx, u, scope, task.ID, models.MoveTaskInput{})
		assertFailure(t, res, err, CodeValidation, "")
	})

	t.Run("within workspace", func(t *testing.T) {
		res, err := f.svc.MoveTask(f.ctx, u, scope, task.ID, models.MoveTaskInput{NewListID: done.ID})
		require.NoError(t, err)
		require.True(t, res.Success, res.Message)
		moved := res.Data.(models.TaskWithList)
		assert.Equal(t, done.ID, moved.ListID)
		assert.Equal(t, "Done", moved.ListTitle)

		stored, err := f.store.GetTask(f.ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, done.ID, stored.ListID)
	})

	t.Run("stale path after move", func(t *testing.T) {
		res, err := f.svc.GetTask(f.ctx, u, scope, task.ID)
		assertFailure(t, res, err, CodeNotFound, LevelTask)
		assert.Equal(t, "task not found in list", res.Message)
	})
}

func TestUpdatesWithoutChangesAreRejected(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "Same")
	l := f.list(t, u, w.ID, "List")
	task := f.task(t, u, l, "Task")

	res, err := f.svc.UpdateWorkspace(f.ctx, u, w.ID, models.WorkspacePatch{Name: ptr("Same")})
	assertFailure(t, res, err, CodeNoChanges, LevelWorkspace)

	res, err = f.svc.UpdateWorkspace(f.ctx, u, w.ID, models.WorkspacePatch{})
	assertFailure(t, res, err, CodeNoChanges, LevelWorkspace)

	res, err = f.svc.UpdateWorkspace(f.ctx, u, w.ID, models.WorkspacePatch{Name: ptr("   "), Description: ptr("")})
	assertFailure(t, res, err, CodeNoChanges, LevelWorkspace)

	res, err = f.svc.UpdateList(f.ctx, u, Scope{}, l.ID, models.ListPatch{Title: ptr(" List ")})
	assertFailure(t, res, err, CodeNoChanges, LevelList)

	res, err = f.svc.UpdateTask(f.ctx, u, Scope{}, task.ID, models.TaskPatch{Title: ptr("Task"), Description: ptr("")})
	assertFailure(t, res, err, CodeNoChanges, LevelTask)

	res, err = f.svc.UpdateTask(f.ctx, u, Scope{}, task.ID, models.TaskPatch{Description: ptr("now with details")})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	updated := res.Data.(models.TaskWithList)
	assert.Equal(t, "Task", updated.Title)
	assert.Equal(t, "now with details", updated.Description)
	assert.Equal(t, "List", updated.ListTitle)
}

func TestUpdateTaskIgnoresListIDInPayload(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "W")
	a := f.list(t, u, w.ID, "A")
	b := f.list(t, u, w.ID, "B")
	task := f.task(t, u, a, "Stay")

	res, err := f.svc.UpdateTask(f.ctx, u, Scope{}, task.ID, models.TaskPatch{ListID: &b.ID})
	assertFailure(t, res, err, CodeNoChanges, LevelTask)

	stored, err := f.store.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ListID)
}

func TestNotFoundNamesTheMissingLevel(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "W")
	other := f.workspace(t, u, "Other")
	l := f.list(t, u, w.ID, "L")

	res, err := f.svc.GetWorkspace(f.ctx, u, "missing")
	assertFailure(t, res, err, CodeNotFound, LevelWorkspace)

	res, err = f.svc.GetList(f.ctx, u, Scope{}, "missing")
	assertFailure(t, res, err, CodeNotFound, LevelList)

	res, err = f.svc.GetTask(f.ctx, u, Scope{}, "missing")
	assertFailure(t, res, err, CodeNotFound, LevelTask)

	res, err = f.svc.CreateTask(f.ctx, u, Scope{}, "missing", models.TaskInput{Title: "T"})
	assertFailure(t, res, err, CodeNotFound, LevelList)

	res, err = f.svc.GetList(f.ctx, u, Scope{WorkspaceID: other.ID}, l.ID)
	assertFailure(t, res, err, CodeNotFound, LevelList)
	assert.Equal(t, "list not found in workspace", res.Message)

	res, err = f.svc.CreateWorkspace(f.ctx, Actor{UserID: "ghost"}, models.WorkspaceInput{Name: "Haunted"})
	assertFailure(t, res, err, CodeNotFound, LevelUser)
}

func TestInputValidation(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "Valid Name 1")
	l := f.list(t, u, w.ID, "Todo")

	res, err := f.svc.CreateWorkspace(f.ctx, u, models.WorkspaceInput{Name: "bad!name"})
	assertFailure(t, res, err, CodeValidation, "")
	assert.Contains(t, res.Message, "name")

	res, err = f.svc.CreateWorkspace(f.ctx, u, models.WorkspaceInput{Name: "   "})
	assertFailure(t, res, err, CodeValidation, "")

	res, err = f.svc.CreateWorkspace(f.ctx, u, models.WorkspaceInput{Name: "Long", Description: strings.Repeat("d", 501)})
	assertFailure(t, res, err, CodeValidation, "")

	res, err = f.svc.CreateList(f.ctx, u, w.ID, models.ListInput{Title: "semi;colon"})
	assertFailure(t, res, err, CodeValidation, "")

	res, err = f.svc.CreateTask(f.ctx, u, Scope{}, l.ID, models.TaskInput{Title: strings.Repeat("t", 101)})
	assertFailure(t, res, err, CodeValidation, "")

	res, err = f.svc.UpdateList(f.ctx, u, Scope{}, l.ID, models.ListPatch{Title: ptr("no/slash")})
	assertFailure(t, res, err, CodeValidation, "")

	res, err = f.svc.CreateWorkspace(f.ctx, u, models.WorkspaceInput{Name: "  Trimmed  "})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Trimmed", res.Data.(*models.Workspace).Name)
}

func TestListWorkspaces(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	other := f.user(t, "other")

	res, err := f.svc.ListWorkspaces(f.ctx, u, Page{}, false)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Empty(t, res.Data)

	for _, name := range []string{"One", "Two", "Three"} {
		f.workspace(t, u, name)
	}
	f.workspace(t, other, "Foreign")

	res, err = f.svc.ListWorkspaces(f.ctx, u, Page{}, false)
	require.NoError(t, err)
	own := res.Data.([]models.Workspace)
	require.Len(t, own, 3)
	assert.Equal(t, "One", own[0].Name)
	assert.Equal(t, "Three", own[2].Name)

	res, err = f.svc.ListWorkspaces(f.ctx, u, Page{Skip: 1, Limit: 1}, false)
	require.NoError(t, err)
	page := res.Data.([]models.Workspace)
	require.Len(t, page, 1)
	assert.Equal(t, "Two", page[0].Name)

	res, err = f.svc.ListWorkspaces(f.ctx, u, Page{Skip: -1}, false)
	assertFailure(t, res, err, CodeValidation, "")
	res, err = f.svc.ListWorkspaces(f.ctx, u, Page{Limit: MaxPageLimit + 1}, false)
	assertFailure(t, res, err, CodeValidation, "")

	res, err = f.svc.ListWorkspaces(f.ctx, u, Page{}, true)
	assertFailure(t, res, err, CodeUnauthorized, LevelWorkspace)

	admin := u
	admin.Admin = true
	res, err = f.svc.ListWorkspaces(f.ctx, admin, Page{}, true)
	require.NoError(t, err)
	assert.Len(t, res.Data.([]models.Workspace), 4)
}

func TestWorkspaceBoardAndTaskViews(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "owner")
	w := f.workspace(t, u, "Board")

	res, err := f.svc.GetWorkspaceBoard(f.ctx, u, w.ID)
	require.NoError(t, err)
	empty := res.Data.(*models.WorkspaceBoard)
	assert.NotNil(t, empty.Lists)
	assert.Empty(t, empty.Lists)

	todo := f.list(t, u, w.ID, "Todo")
	done := f.list(t, u, w.ID, "Done")
	f.list(t, u, w.ID, "Archive")
	f.task(t, u, todo, "Write tests")
	f.task(t, u, todo, "Fix bug")
	f.task(t, u, done, "Deploy")

	res, err = f.svc.GetWorkspaceBoard(f.ctx, u, w.ID)
	require.NoError(t, err)
	board := res.Data.(*models.WorkspaceBoard)
	assert.Equal(t, w.ID, board.ID)
	require.Len(t, board.Lists, 3)
	assert.Equal(t, "Archive", board.Lists[0].Title)
	assert.NotNil(t, board.Lists[0].Tasks)
	assert.Empty(t, board.Lists[0].Tasks)
	assert.Equal(t, "Done", board.Lists[1].Title)
	assert.Len(t, board.Lists[1].Tasks, 1)
	assert.Equal(t, "Todo", board.Lists[2].Title)
	assert.Len(t, board.Lists[2].Tasks, 2)

	res, err = f.svc.ListTasks(f.ctx, u, w.ID)
	require.NoError(t, err)
	tasks := res.Data.([]models.TaskWithList)
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		if i > 0 {
			assert.LessOrEqual(t, tasks[i-1].ListID, task.ListID)
		}
		switch task.ListID {
		case todo.ID:
			assert.Equal(t, "Todo", task.ListTitle)
		case done.ID:
			assert.Equal(t, "Done", task.ListTitle)
		default:
			t.Fatalf("unexpected list %s", task.ListID)
		}
	}

	res, err = f.svc.ListLists(f.ctx, u, w.ID)
	require.NoError(t, err)
	lists := res.Data.([]models.List)
	require.Len(t, lists, 3)
	assert.Equal(t, "Archive", lists[0].Title)
}

type brokenStore struct {
	database.Store
}

func (brokenStore) GetWorkspace(context.Context, string) (*models.Workspace, error) {
	return nil, errors.New("connection reset")
}

func TestInfrastructureErrorsPropagate(t *testing.T) {
	svc := NewBoardService(brokenStore{Store: database.NewMemoryStore()})

	res, err := svc.GetWorkspace(context.Background(), Actor{UserID: "u"}, "w")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "connection reset")
}
