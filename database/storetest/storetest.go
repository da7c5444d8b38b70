// Package storetest holds the behaviour every database.Store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/database"
	"taskboard/models"
)

// Run exercises a Store implementation. newStore must return an empty store
// for every call.
func Run(t *testing.T, newStore func(t *testing.T) database.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("workspace names", func(t *testing.T) { testWorkspaceNames(t, newStore(t)) })
	t.Run("workspace pagination", func(t *testing.T) { testWorkspacePagination(t, newStore(t)) })
	t.Run("workspace update", func(t *testing.T) { testWorkspaceUpdate(t, newStore(t)) })
	t.Run("list titles", func(t *testing.T) { testListTitles(t, newStore(t)) })
	t.Run("delete guards", func(t *testing.T) { testDeleteGuards(t, newStore(t)) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
}

func seedUser(t *testing.T, s database.Store, name string) string {
	t.Helper()
	id, err := s.InsertUser(context.Background(), &models.User{
		Name:          name,
		Email:         name + "@example.com",
		Active:        true,
		CredentialRef: "uid-" + name + "-" + uuid.NewString(),
	})
	require.NoError(t, err)
	return id
}

func seedWorkspace(t *testing.T, s database.Store, owner, name string) string {
	t.Helper()
	id, err := s.InsertWorkspace(context.Background(), &models.Workspace{Name: name, OwnerUserID: owner})
	require.NoError(t, err)
	return id
}

func seedList(t *testing.T, s database.Store, workspaceID, title string) string {
	t.Helper()
	id, err := s.InsertList(context.Background(), &models.List{Title: title, WorkspaceID: workspaceID})
	require.NoError(t, err)
	return id
}

func seedTask(t *testing.T, s database.Store, listID, title string) string {
	t.Helper()
	id, err := s.InsertTask(context.Background(), &models.Task{Title: title, ListID: listID})
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string { return &s }

func testUsers(t *testing.T, s database.Store) {
	ctx := context.Background()
	id, err := s.InsertUser(ctx, &models.User{Name: "Ana", Email: "ana@example.com", Active: true, CredentialRef: "uid-ana"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.True(t, got.Active)

	byRef, err := s.FindUserByCredential(ctx, "uid-ana")
	require.NoError(t, err)
	assert.Equal(t, id, byRef.ID)

	_, err = s.InsertUser(ctx, &models.User{Name: "Other", Email: "x@example.com", CredentialRef: "uid-ana"})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	_, err = s.FindUserByCredential(ctx, "uid-missing")
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, id))
	_, err = s.GetUser(ctx, id)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, id), database.ErrNotFound)
}

func testWorkspaceNames(t *testing.T, s database.Store) {
	ctx := context.Background()
	u1 := seedUser(t, s, "one")
	u2 := seedUser(t, s, "two")

	id := seedWorkspace(t, s, u1, "Eng")
	_, err := s.InsertWorkspace(ctx, &models.Workspace{Name: "eng", OwnerUserID: u1})
	assert.ErrorIs(t, err, database.ErrDuplicate)
	seedWorkspace(t, s, u2, "Eng")

	w, err := s.GetWorkspace(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Eng", w.Name)
	assert.Equal(t, "eng", w.NameKey)
	assert.Equal(t, u1, w.OwnerUserID)
	assert.False(t, w.CreatedAt.IsZero())

	found, err := s.FindWorkspaces(ctx, database.WorkspaceFilter{OwnerUserID: u1, NameKey: "eng"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)

	found, err = s.FindWorkspaces(ctx, database.WorkspaceFilter{OwnerUserID: u1, NameKey: "eng", ExcludeID: id})
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = s.GetWorkspace(ctx, uuid.NewString())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testWorkspacePagination(t *testing.T, s database.Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "pager")
	var ids []string
	for _, name := range []string{"First", "Second", "Third", "Fourth"} {
		ids = append(ids, seedWorkspace(t, s, owner, name))
		time.Sleep(2 * time.Millisecond)
	}
	seedWorkspace(t, s, seedUser(t, s, "stranger"), "First")

	all, err := s.FindWorkspaces(ctx, database.WorkspaceFilter{OwnerUserID: owner})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, w := range all {
		assert.Equal(t, ids[i], w.ID)
	}

	page, err := s.FindWorkspaces(ctx, database.WorkspaceFilter{OwnerUserID: owner, Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	page, err = s.FindWorkspaces(ctx, database.WorkspaceFilter{OwnerUserID: owner, Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, page)

	everything, err := s.FindWorkspaces(ctx, database.WorkspaceFilter{})
	require.NoError(t, err)
	assert.Len(t, everything, 5)
}

func testWorkspaceUpdate(t *testing.T, s database.Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "editor")
	id := seedWorkspace(t, s, owner, "Alpha")
	seedWorkspace(t, s, owner, "Beta")

	n, err := s.UpdateWorkspace(ctx, id, models.WorkspacePatch{Description: strPtr("first project")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.UpdateWorkspace(ctx, id, models.WorkspacePatch{Name: strPtr("BETA")})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	n, err = s.UpdateWorkspace(ctx, id, models.WorkspacePatch{Name: strPtr("ALPHA")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	w, err := s.GetWorkspace(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ALPHA", w.Name)
	assert.Equal(t, "alpha", w.NameKey)
	assert.Equal(t, "first project", w.Description)
	assert.False(t, w.UpdatedAt.Before(w.CreatedAt))

	n, err = s.UpdateWorkspace(ctx, uuid.NewString(), models.WorkspacePatch{Description: strPtr("x")})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func testListTitles(t *testing.T, s database.Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "lister")
	w1 := seedWorkspace(t, s, owner, "One")
	w2 := seedWorkspace(t, s, owner, "Two")

	todo := seedList(t, s, w1, "todo")
	_, err := s.InsertList(ctx, &models.List{Title: "TODO", WorkspaceID: w1})
	assert.ErrorIs(t, err, database.ErrDuplicate)
	seedList(t, s, w2, "todo")
	done := seedList(t, s, w1, "done")

	lists, err := s.FindLists(ctx, database.ListFilter{WorkspaceID: w1})
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, done, lists[0].ID)
	assert.Equal(t, todo, lists[1].ID)

	_, err = s.UpdateList(ctx, done, models.ListPatch{Title: strPtr("Todo")})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	n, err := s.UpdateList(ctx, done, models.ListPatch{Title: strPtr("finished"), Description: strPtr("closed work")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	l, err := s.GetList(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, "finished", l.TitleKey)
	assert.Equal(t, "closed work", l.Description)
	assert.Equal(t, w1, l.WorkspaceID)

	count, err := s.CountLists(ctx, w1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func testDeleteGuards(t *testing.T, s database.Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "cleaner")
	w := seedWorkspace(t, s, owner, "Ops")
	l := seedList(t, s, w, "Backlog")
	task := seedTask(t, s, l, "Rotate keys")

	assert.ErrorIs(t, s.DeleteWorkspace(ctx, w), database.ErrHasDependents)
	assert.ErrorIs(t, s.DeleteList(ctx, l), database.ErrHasDependents)

	require.NoError(t, s.DeleteTask(ctx, task))
	require.NoError(t, s.DeleteList(ctx, l))
	require.NoError(t, s.DeleteWorkspace(ctx, w))

	assert.ErrorIs(t, s.DeleteTask(ctx, task), database.ErrNotFound)
	assert.ErrorIs(t, s.DeleteList(ctx, l), database.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWorkspace(ctx, w), database.ErrNotFound)
}

func testTasks(t *testing.T, s database.Store) {
	ctx := context.Background()
	owner := seedUser(t, s, "worker")
	w := seedWorkspace(t, s, owner, "Home")
	a := seedList(t, s, w, "A")
	b := seedList(t, s, w, "B")

	_, err := s.InsertTask(ctx, &models.Task{Title: "orphan", ListID: uuid.NewString()})
	assert.ErrorIs(t, err, database.ErrNotFound)

	t1 := seedTask(t, s, a, "Dishes")
	seedTask(t, s, b, "Laundry")

	all, err := s.FindTasks(ctx, database.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := s.FindTasks(ctx, database.TaskFilter{ListIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	byKey, err := s.FindTasks(ctx, database.TaskFilter{ListIDs: []string{a, b}, TitleKey: "dishes"})
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, t1, byKey[0].ID)

	excluded, err := s.FindTasks(ctx, database.TaskFilter{ListIDs: []string{a, b}, TitleKey: "dishes", ExcludeID: t1})
	require.NoError(t, err)
	assert.Empty(t, excluded)

	n, err := s.UpdateTask(ctx, t1, models.TaskPatch{ListID: &b})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	moved, err := s.GetTask(ctx, t1)
	require.NoError(t, err)
	assert.Equal(t, b, moved.ListID)

	missing := uuid.NewString()
	_, err = s.UpdateTask(ctx, t1, models.TaskPatch{ListID: &missing})
	assert.ErrorIs(t, err, database.ErrNotFound)

	countA, err := s.CountTasks(ctx, a)
	require.NoError(t, err)
	countB, err := s.CountTasks(ctx, b)
	require.NoError(t, err)
	assert.EqualValues(t, 0, countA)
	assert.EqualValues(t, 2, countB)
}
