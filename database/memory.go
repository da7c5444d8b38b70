package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps every collection in process memory. It enforces the same
// uniqueness and delete restrictions as the SQL backend, under one mutex.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	workspaces map[string]models.Workspace
	lists      map[string]models.List
	tasks      map[string]models.Task
	now        func() time.Time
	last       time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		workspaces: make(map[string]models.Workspace),
		lists:      make(map[string]models.List),
		tasks:      make(map[string]models.Task),
		now:        time.Now,
	}
}

func (s *MemoryStore) InsertUser(_ context.Context, u *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.CredentialRef == u.CredentialRef {
			return "", ErrDuplicate
		}
	}
	rec := *u
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.stamp()
	}
	s.users[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByCredential(_ context.Context, credentialRef string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.CredentialRef == credentialRef {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) InsertWorkspace(_ context.Context, w *models.Workspace) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *w
	rec.NameKey = models.NameKey(rec.Name)
	if s.workspaceNameTaken(rec.OwnerUserID, rec.NameKey, "") {
		return "", ErrDuplicate
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.stamp()
	rec.UpdatedAt = rec.CreatedAt
	s.workspaces[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) GetWorkspace(_ context.Context, id string) (*models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (s *MemoryStore) FindWorkspaces(_ context.Context, f WorkspaceFilter) ([]models.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Workspace{}
	for _, w := range s.workspaces {
		if f.OwnerUserID != "" && w.OwnerUserID != f.OwnerUserID {
			continue
		}
		if f.NameKey != "" && w.NameKey != f.NameKey {
			continue
		}
		if f.ExcludeID != "" && w.ID == f.ExcludeID {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return paginate(out, f.Skip, f.Limit), nil
}

func (s *MemoryStore) UpdateWorkspace(_ context.Context, id string, p models.WorkspacePatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workspaces[id]
	if !ok {
		return 0, nil
	}
	p.Apply(&w)
	if p.Name != nil && s.workspaceNameTaken(w.OwnerUserID, w.NameKey, id) {
		return 0, ErrDuplicate
	}
	w.UpdatedAt = s.stamp()
	s.workspaces[id] = w
	return 1, nil
}

func (s *MemoryStore) DeleteWorkspace(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return ErrNotFound
	}
	for _, l := range s.lists {
		if l.WorkspaceID == id {
			return ErrHasDependents
		}
	}
	delete(s.workspaces, id)
	return nil
}

func (s *MemoryStore) InsertList(_ context.Context, l *models.List) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *l
	rec.TitleKey = models.NameKey(rec.Title)
	if s.listTitleTaken(rec.WorkspaceID, rec.TitleKey, "") {
		return "", ErrDuplicate
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.stamp()
	rec.UpdatedAt = rec.CreatedAt
	s.lists[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) GetList(_ context.Context, id string) (*models.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) FindLists(_ context.Context, f ListFilter) ([]models.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.List{}
	for _, l := range s.lists {
		if f.WorkspaceID != "" && l.WorkspaceID != f.WorkspaceID {
			continue
		}
		if f.TitleKey != "" && l.TitleKey != f.TitleKey {
			continue
		}
		if f.ExcludeID != "" && l.ID == f.ExcludeID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *MemoryStore) UpdateList(_ context.Context, id string, p models.ListPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	if !ok {
		return 0, nil
	}
	p.Apply(&l)
	if p.Title != nil && s.listTitleTaken(l.WorkspaceID, l.TitleKey, id) {
		return 0, ErrDuplicate
	}
	l.UpdatedAt = s.stamp()
	s.lists[id] = l
	return 1, nil
}

func (s *MemoryStore) DeleteList(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return ErrNotFound
	}
	for _, t := range s.tasks {
		if t.ListID == id {
			return ErrHasDependents
		}
	}
	delete(s.lists, id)
	return nil
}

func (s *MemoryStore) CountLists(_ context.Context, workspaceID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, l := range s.lists {
		if l.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) InsertTask(_ context.Context, t *models.Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[t.ListID]; !ok {
		return "", ErrNotFound
	}
	rec := *t
	rec.TitleKey = models.NameKey(rec.Title)
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.stamp()
	rec.UpdatedAt = rec.CreatedAt
	s.tasks[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) FindTasks(_ context.Context, f TaskFilter) ([]models.Task, error) {
	out := []models.Task{}
	if f.matchesNothing() {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var lists map[string]bool
	if f.ListIDs != nil {
		lists = make(map[string]bool, len(f.ListIDs))
		for _, id := range f.ListIDs {
			lists[id] = true
		}
	}
	for _, t := range s.tasks {
		if lists != nil && !lists[t.ListID] {
			continue
		}
		if f.TitleKey != "" && t.TitleKey != f.TitleKey {
			continue
		}
		if f.ExcludeID != "" && t.ID == f.ExcludeID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ListID != out[j].ListID {
			return out[i].ListID < out[j].ListID
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, id string, p models.TaskPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return 0, nil
	}
	if p.ListID != nil {
		if _, ok := s.lists[*p.ListID]; !ok {
			return 0, ErrNotFound
		}
	}
	p.Apply(&t)
	t.UpdatedAt = s.stamp()
	s.tasks[id] = t
	return 1, nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) CountTasks(_ context.Context, listID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.tasks {
		if t.ListID == listID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// stamp returns strictly increasing timestamps so creation order is stable.
// Callers hold the write lock.
func (s *MemoryStore) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) workspaceNameTaken(ownerID, key, excludeID string) bool {
	for _, w := range s.workspaces {
		if w.ID != excludeID && w.OwnerUserID == ownerID && w.NameKey == key {
			return true
		}
	}
	return false
}

func (s *MemoryStore) listTitleTaken(workspaceID, key, excludeID string) bool {
	for _, l := range s.lists {
		if l.ID != excludeID && l.WorkspaceID == workspaceID && l.TitleKey == key {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
