package firebase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskboard/database"
	"taskboard/models"
)

const (
	usersCollection      = "users"
	workspacesCollection = "workspaces"
	listsCollection      = "lists"
	tasksCollection      = "tasks"

	// Firestore caps "in" filters at 30 values. Clear removes batchSize
	// documents per pass.
	inFilterLimit = 30
	batchSize     = 500
)

var _ database.Store = (*FirestoreStore)(nil)

// FirestoreStore implements database.Store on Cloud Firestore, one top-level
// collection per entity. Name checks and delete guards run inside
// transactions together with the write they protect.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) col(name string) *firestore.CollectionRef {
	return s.client.Collection(name)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func decode[T any](doc *firestore.DocumentSnapshot, setID func(*T, string)) (*T, error) {
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Ref.Path, err)
	}
	setID(&v, doc.Ref.ID)
	return &v, nil
}

func decodeAll[T any](docs []*firestore.DocumentSnapshot, excludeID string, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		if doc.Ref.ID == excludeID {
			continue
		}
		v, err := decode(doc, setID)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func setUserID(u *models.User, id string)           { u.ID = id }
func setWorkspaceID(w *models.Workspace, id string) { w.ID = id }
func setListID(l *models.List, id string)           { l.ID = id }
func setTaskID(t *models.Task, id string)           { t.ID = id }

func (s *FirestoreStore) get(ctx context.Context, collection, id string) (*firestore.DocumentSnapshot, error) {
	if id == "" {
		return nil, database.ErrNotFound
	}
	doc, err := s.col(collection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// anyMatch reports whether q has at least one document other than excludeID.
func anyMatch(tx *firestore.Transaction, q firestore.Query, excludeID string) (bool, error) {
	docs, err := tx.Documents(q.Limit(2)).GetAll()
	if err != nil {
		return false, err
	}
	for _, d := range docs {
		if d.Ref.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *FirestoreStore) InsertUser(ctx context.Context, u *models.User) (string, error) {
	ref := s.col(usersCollection).NewDoc()
	rec := *u
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taken, err := anyMatch(tx, s.col(usersCollection).Where("credential_ref", "==", rec.CredentialRef), "")
		if err != nil {
			return err
		}
		if taken {
			return database.ErrDuplicate
		}
		return tx.Create(ref, rec)
	})
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.get(ctx, usersCollection, id)
	if err != nil {
		return nil, err
	}
	return decode(doc, setUserID)
}

func (s *FirestoreStore) FindUserByCredential(ctx context.Context, credentialRef string) (*models.User, error) {
	docs, err := s.col(usersCollection).Where("credential_ref", "==", credentialRef).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(docs) == 0 {
		return nil, database.ErrNotFound
	}
	return decode(docs[0], setUserID)
}

func (s *FirestoreStore) DeleteUser(ctx context.Context, id string) error {
	return s.deleteGuarded(ctx, usersCollection, id, nil)
}

func (s *FirestoreStore) workspaceNameQuery(ownerID, key string) firestore.Query {
	return s.col(workspacesCollection).Where("id_user", "==", ownerID).Where("name_key", "==", key)
}

func (s *FirestoreStore) InsertWorkspace(ctx context.Context, w *models.Workspace) (string, error) {
	ref := s.col(workspacesCollection).NewDoc()
	now := time.Now().UTC()
	rec := *w
	rec.NameKey = models.NameKey(rec.Name)
	rec.CreatedAt, rec.UpdatedAt = now, now

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taken, err := anyMatch(tx, s.workspaceNameQuery(rec.OwnerUserID, rec.NameKey), "")
		if err != nil {
			return err
		}
		if taken {
			return database.ErrDuplicate
		}
		return tx.Create(ref, rec)
	})
	if err != nil {
		return "", fmt.Errorf("insert workspace: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	doc, err := s.get(ctx, workspacesCollection, id)
	if err != nil {
		return nil, err
	}
	return decode(doc, setWorkspaceID)
}

func (s *FirestoreStore) FindWorkspaces(ctx context.Context, f database.WorkspaceFilter) ([]models.Workspace, error) {
	q := s.col(workspacesCollection).Query
	if f.OwnerUserID != "" {
		q = q.Where("id_user", "==", f.OwnerUserID)
	}
	if f.NameKey != "" {
		q = q.Where("name_key", "==", f.NameKey)
	}
	q = q.OrderBy("created_at", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
	if f.ExcludeID == "" {
		if f.Skip > 0 {
			q = q.Offset(f.Skip)
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find workspaces: %w", err)
	}
	out, err := decodeAll(docs, f.ExcludeID, setWorkspaceID)
	if err != nil {
		return nil, err
	}
	if f.ExcludeID != "" {
		out = window(out, f.Skip, f.Limit)
	}
	return out, nil
}

func (s *FirestoreStore) UpdateWorkspace(ctx context.Context, id string, p models.WorkspacePatch) (int64, error) {
	var matched int64
	ref := s.col(workspacesCollection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		matched = 0
		doc, err := tx.Get(ref)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := decode(doc, setWorkspaceID)
		if err != nil {
			return err
		}

		var updates []firestore.Update
		if p.Name != nil {
			key := models.NameKey(*p.Name)
			taken, err := anyMatch(tx, s.workspaceNameQuery(current.OwnerUserID, key), id)
			if err != nil {
				return err
			}
			if taken {
				return database.ErrDuplicate
			}
			updates = append(updates,
				firestore.Update{Path: "name", Value: *p.Name},
				firestore.Update{Path: "name_key", Value: key})
		}
		if p.Description != nil {
			updates = append(updates, firestore.Update{Path: "description", Value: *p.Description})
		}
		matched = 1
		return tx.Update(ref, append(updates, firestore.Update{Path: "updated_at", Value: time.Now().UTC()}))
	})
	if err != nil {
		return 0, fmt.Errorf("update workspace: %w", err)
	}
	return matched, nil
}

func (s *FirestoreStore) DeleteWorkspace(ctx context.Context, id string) error {
	children := s.col(listsCollection).Where("id_workspace", "==", id)
	return s.deleteGuarded(ctx, workspacesCollection, id, &children)
}

func (s *FirestoreStore) listTitleQuery(workspaceID, key string) firestore.Query {
	return s.col(listsCollection).Where("id_workspace", "==", workspaceID).Where("title_key", "==", key)
}

func (s *FirestoreStore) InsertList(ctx context.Context, l *models.List) (string, error) {
	ref := s.col(listsCollection).NewDoc()
	now := time.Now().UTC()
	rec := *l
	rec.TitleKey = models.NameKey(rec.Title)
	rec.CreatedAt, rec.UpdatedAt = now, now

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taken, err := anyMatch(tx, s.listTitleQuery(rec.WorkspaceID, rec.TitleKey), "")
		if err != nil {
			return err
		}
		if taken {
			return database.ErrDuplicate
		}
		return tx.Create(ref, rec)
	})
	if err != nil {
		return "", fmt.Errorf("insert list: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) GetList(ctx context.Context, id string) (*models.List, error) {
	doc, err := s.get(ctx, listsCollection, id)
	if err != nil {
		return nil, err
	}
	return decode(doc, setListID)
}

func (s *FirestoreStore) FindLists(ctx context.Context, f database.ListFilter) ([]models.List, error) {
	q := s.col(listsCollection).Query
	if f.WorkspaceID != "" {
		q = q.Where("id_workspace", "==", f.WorkspaceID)
	}
	if f.TitleKey != "" {
		q = q.Where("title_key", "==", f.TitleKey)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("find lists: %w", err)
	}
	out, err := decodeAll(docs, f.ExcludeID, setListID)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].ID < out[j].ID
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *FirestoreStore) UpdateList(ctx context.Context, id string, p models.ListPatch) (int64, error) {
	var matched int64
	ref := s.col(listsCollection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		matched = 0
		doc, err := tx.Get(ref)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := decode(doc, setListID)
		if err != nil {
			return err
		}

		var updates []firestore.Update
		if p.Title != nil {
			key := models.NameKey(*p.Title)
			taken, err := anyMatch(tx, s.listTitleQuery(current.WorkspaceID, key), id)
			if err != nil {
				return err
			}
			if taken {
				return database.ErrDuplicate
			}
			updates = append(updates,
				firestore.Update{Path: "title", Value: *p.Title},
				firestore.Update{Path: "title_key", Value: key})
		}
		if p.Description != nil {
			updates = append(updates, firestore.Update{Path: "description", Value: *p.Description})
		}
		matched = 1
		return tx.Update(ref, append(updates, firestore.Update{Path: "updated_at", Value: time.Now().UTC()}))
	})
	if err != nil {
		return 0, fmt.Errorf("update list: %w", err)
	}
	return matched, nil
}

func (s *FirestoreStore) DeleteList(ctx context.Context, id string) error {
	children := s.col(tasksCollection).Where("id_list", "==", id)
	return s.deleteGuarded(ctx, listsCollection, id, &children)
}

func (s *FirestoreStore) CountLists(ctx context.Context, workspaceID string) (int64, error) {
	return s.count(ctx, s.col(listsCollection).Where("id_workspace", "==", workspaceID))
}

func (s *FirestoreStore) InsertTask(ctx context.Context, t *models.Task) (string, error) {
	ref := s.col(tasksCollection).NewDoc()
	now := time.Now().UTC()
	rec := *t
	rec.TitleKey = models.NameKey(rec.Title)
	rec.CreatedAt, rec.UpdatedAt = now, now

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := requireDoc(tx, s.col(listsCollection), rec.ListID); err != nil {
			return err
		}
		return tx.Create(ref, rec)
	})
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	doc, err := s.get(ctx, tasksCollection, id)
	if err != nil {
		return nil, err
	}
	return decode(doc, setTaskID)
}

// FindTasks queries list ids in chunks that fit an "in" filter and sorts
// the merged result.
func (s *FirestoreStore) FindTasks(ctx context.Context, f database.TaskFilter) ([]models.Task, error) {
	out := []models.Task{}
	if f.ListIDs != nil && len(f.ListIDs) == 0 {
		return out, nil
	}

	base := s.col(tasksCollection).Query
	if f.TitleKey != "" {
		base = base.Where("title_key", "==", f.TitleKey)
	}
	queries := []firestore.Query{base}
	if f.ListIDs != nil {
		queries = queries[:0]
		for start := 0; start < len(f.ListIDs); start += inFilterLimit {
			end := min(start+inFilterLimit, len(f.ListIDs))
			queries = append(queries, base.Where("id_list", "in", f.ListIDs[start:end]))
		}
	}

	for _, q := range queries {
		docs, err := q.Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("find tasks: %w", err)
		}
		part, err := decodeAll(docs, f.ExcludeID, setTaskID)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
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

func (s *FirestoreStore) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (int64, error) {
	var matched int64
	ref := s.col(tasksCollection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		matched = 0
		if _, err := tx.Get(ref); isNotFound(err) {
			return nil
		} else if err != nil {
			return err
		}

		var updates []firestore.Update
		if p.ListID != nil {
			if err := requireDoc(tx, s.col(listsCollection), *p.ListID); err != nil {
				return err
			}
			updates = append(updates, firestore.Update{Path: "id_list", Value: *p.ListID})
		}
		if p.Title != nil {
			updates = append(updates,
				firestore.Update{Path: "title", Value: *p.Title},
				firestore.Update{Path: "title_key", Value: models.NameKey(*p.Title)})
		}
		if p.Description != nil {
			updates = append(updates, firestore.Update{Path: "description", Value: *p.Description})
		}
		matched = 1
		return tx.Update(ref, append(updates, firestore.Update{Path: "updated_at", Value: time.Now().UTC()}))
	})
	if err != nil {
		return 0, fmt.Errorf("update task: %w", err)
	}
	return matched, nil
}

func (s *FirestoreStore) DeleteTask(ctx context.Context, id string) error {
	return s.deleteGuarded(ctx, tasksCollection, id, nil)
}

func (s *FirestoreStore) CountTasks(ctx context.Context, listID string) (int64, error) {
	return s.count(ctx, s.col(tasksCollection).Where("id_list", "==", listID))
}

// Ping runs a one-document query against the users collection.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.col(usersCollection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Clear deletes every document in batches. Used by integration tests.
func (s *FirestoreStore) Clear(ctx context.Context) error {
	for _, name := range []string{tasksCollection, listsCollection, workspacesCollection, usersCollection} {
		for {
			iter := s.col(name).Limit(batchSize).Documents(ctx)
			batch := s.client.BulkWriter(ctx)
			deleted := 0
			for {
				doc, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					batch.End()
					return fmt.Errorf("iterate %s: %w", name, err)
				}
				if _, err := batch.Delete(doc.Ref); err != nil {
					batch.End()
					return fmt.Errorf("queue delete in %s: %w", name, err)
				}
				deleted++
			}
			batch.End()
			if deleted == 0 {
				break
			}
		}
	}
	return nil
}

// deleteGuarded removes a document unless children has a match, both read
// in the same transaction.
func (s *FirestoreStore) deleteGuarded(ctx context.Context, collection, id string, children *firestore.Query) error {
	if id == "" {
		return database.ErrNotFound
	}
	ref := s.col(collection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); isNotFound(err) {
			return database.ErrNotFound
		} else if err != nil {
			return err
		}
		if children != nil {
			busy, err := anyMatch(tx, *children, "")
			if err != nil {
				return err
			}
			if busy {
				return database.ErrHasDependents
			}
		}
		return tx.Delete(ref)
	})
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrHasDependents) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func requireDoc(tx *firestore.Transaction, col *firestore.CollectionRef, id string) error {
	if id == "" {
		return database.ErrNotFound
	}
	_, err := tx.Get(col.Doc(id))
	if isNotFound(err) {
		return database.ErrNotFound
	}
	return err
}

func (s *FirestoreStore) count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("n").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	v, ok := res["n"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count: unexpected result %T", res["n"])
	}
	return v.GetIntegerValue(), nil
}

func window[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return items[:0]
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
