package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskboard/models"
	"taskboard/utilities"
)

const (
	usersCollection      = "users"
	workspacesCollection = "workspaces"
	listsCollection      = "lists"
	tasksCollection      = "tasks"
)

// Documents pair the model with its ObjectID; the models keep ids out of
// their bson encoding.
type userDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	models.User `bson:",inline"`
}

type workspaceDoc struct {
	ID               primitive.ObjectID `bson:"_id"`
	models.Workspace `bson:",inline"`
}

type listDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	models.List `bson:",inline"`
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	models.Task `bson:",inline"`
}

var _ Store = (*MongoStore)(nil)

// MongoStore implements Store on MongoDB. Workspace and list names are
// protected by unique compound indexes; delete guards count children first.
type MongoStore struct {
	client     *mongo.Client
	users      *mongo.Collection
	workspaces *mongo.Collection
	lists      *mongo.Collection
	tasks      *mongo.Collection
}

// ConnectMongo dials the server, verifies it with a ping and creates the indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		users:      db.Collection(usersCollection),
		workspaces: db.Collection(workspacesCollection),
		lists:      db.Collection(listsCollection),
		tasks:      db.Collection(tasksCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	utilities.LogInfo("Connected to MongoDB database %s", database)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "credential_ref", Value: 1}}, Options: unique},
		},
		s.workspaces: {
			{Keys: bson.D{{Key: "id_user", Value: 1}, {Key: "name_key", Value: 1}}, Options: unique},
		},
		s.lists: {
			{Keys: bson.D{{Key: "id_workspace", Value: 1}, {Key: "title_key", Value: 1}}, Options: unique},
		},
		s.tasks: {
			{Keys: bson.D{{Key: "id_list", Value: 1}}},
			{Keys: bson.D{{Key: "title_key", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func mapMongoError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// excludeID adds an _id inequality. Ids that are not ObjectIDs can never
// match, so they are skipped.
func excludeID(filter bson.D, id string) bson.D {
	if oid, ok := objectID(id); ok {
		filter = append(filter, bson.E{Key: "_id", Value: bson.M{"$ne": oid}})
	}
	return filter
}

func (s *MongoStore) insert(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID, doc any) (string, error) {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert into %s: %w", coll.Name(), mapMongoError(err))
	}
	return oid.Hex(), nil
}

func (s *MongoStore) findByID(ctx context.Context, coll *mongo.Collection, id string, out any) error {
	oid, ok := objectID(id)
	if !ok {
		return ErrNotFound
	}
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(out); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (s *MongoStore) updateByID(ctx context.Context, coll *mongo.Collection, id string, set bson.M) (int64, error) {
	oid, ok := objectID(id)
	if !ok {
		return 0, nil
	}
	set["updated_at"] = time.Now().UTC()
	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", coll.Name(), mapMongoError(err))
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return ErrNotFound
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) InsertUser(ctx context.Context, u *models.User) (string, error) {
	doc := userDoc{ID: primitive.NewObjectID(), User: *u}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return s.insert(ctx, s.users, doc.ID, doc)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var doc userDoc
	if err := s.findByID(ctx, s.users, id, &doc); err != nil {
		return nil, err
	}
	doc.User.ID = doc.ID.Hex()
	return &doc.User, nil
}

func (s *MongoStore) FindUserByCredential(ctx context.Context, credentialRef string) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"credential_ref": credentialRef}).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	doc.User.ID = doc.ID.Hex()
	return &doc.User, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, s.users, id)
}

func (s *MongoStore) InsertWorkspace(ctx context.Context, w *models.Workspace) (string, error) {
	now := time.Now().UTC()
	doc := workspaceDoc{ID: primitive.NewObjectID(), Workspace: *w}
	doc.NameKey = models.NameKey(w.Name)
	doc.CreatedAt, doc.UpdatedAt = now, now
	return s.insert(ctx, s.workspaces, doc.ID, doc)
}

func (s *MongoStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var doc workspaceDoc
	if err := s.findByID(ctx, s.workspaces, id, &doc); err != nil {
		return nil, err
	}
	doc.Workspace.ID = doc.ID.Hex()
	return &doc.Workspace, nil
}

func (s *MongoStore) FindWorkspaces(ctx context.Context, f WorkspaceFilter) ([]models.Workspace, error) {
	filter := bson.D{}
	if f.OwnerUserID != "" {
		filter = append(filter, bson.E{Key: "id_user", Value: f.OwnerUserID})
	}
	if f.NameKey != "" {
		filter = append(filter, bson.E{Key: "name_key", Value: f.NameKey})
	}
	if f.ExcludeID != "" {
		filter = excludeID(filter, f.ExcludeID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if f.Skip > 0 {
		opts.SetSkip(int64(f.Skip))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	var docs []workspaceDoc
	if err := s.findAll(ctx, s.workspaces, filter, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Workspace, 0, len(docs))
	for _, d := range docs {
		d.Workspace.ID = d.ID.Hex()
		out = append(out, d.Workspace)
	}
	return out, nil
}

func (s *MongoStore) UpdateWorkspace(ctx context.Context, id string, p models.WorkspacePatch) (int64, error) {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
		set["name_key"] = models.NameKey(*p.Name)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	return s.updateByID(ctx, s.workspaces, id, set)
}

func (s *MongoStore) DeleteWorkspace(ctx context.Context, id string) error {
	n, err := s.CountLists(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	return s.deleteByID(ctx, s.workspaces, id)
}

func (s *MongoStore) InsertList(ctx context.Context, l *models.List) (string, error) {
	now := time.Now().UTC()
	doc := listDoc{ID: primitive.NewObjectID(), List: *l}
	doc.TitleKey = models.NameKey(l.Title)
	doc.CreatedAt, doc.UpdatedAt = now, now
	return s.insert(ctx, s.lists, doc.ID, doc)
}

func (s *MongoStore) GetList(ctx context.Context, id string) (*models.List, error) {
	var doc listDoc
	if err := s.findByID(ctx, s.lists, id, &doc); err != nil {
		return nil, err
	}
	doc.List.ID = doc.ID.Hex()
	return &doc.List, nil
}

func (s *MongoStore) FindLists(ctx context.Context, f ListFilter) ([]models.List, error) {
	filter := bson.D{}
	if f.WorkspaceID != "" {
		filter = append(filter, bson.E{Key: "id_workspace", Value: f.WorkspaceID})
	}
	if f.TitleKey != "" {
		filter = append(filter, bson.E{Key: "title_key", Value: f.TitleKey})
	}
	if f.ExcludeID != "" {
		filter = excludeID(filter, f.ExcludeID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})

	var docs []listDoc
	if err := s.findAll(ctx, s.lists, filter, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]models.List, 0, len(docs))
	for _, d := range docs {
		d.List.ID = d.ID.Hex()
		out = append(out, d.List)
	}
	return out, nil
}

func (s *MongoStore) UpdateList(ctx context.Context, id string, p models.ListPatch) (int64, error) {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
		set["title_key"] = models.NameKey(*p.Title)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	return s.updateByID(ctx, s.lists, id, set)
}

func (s *MongoStore) DeleteList(ctx context.Context, id string) error {
	n, err := s.CountTasks(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	return s.deleteByID(ctx, s.lists, id)
}

func (s *MongoStore) CountLists(ctx context.Context, workspaceID string) (int64, error) {
	n, err := s.lists.CountDocuments(ctx, bson.M{"id_workspace": workspaceID})
	if err != nil {
		return 0, fmt.Errorf("count lists: %w", err)
	}
	return n, nil
}

func (s *MongoStore) InsertTask(ctx context.Context, t *models.Task) (string, error) {
	if _, err := s.GetList(ctx, t.ListID); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	doc := taskDoc{ID: primitive.NewObjectID(), Task: *t}
	doc.TitleKey = models.NameKey(t.Title)
	doc.CreatedAt, doc.UpdatedAt = now, now
	return s.insert(ctx, s.tasks, doc.ID, doc)
}

func (s *MongoStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var doc taskDoc
	if err := s.findByID(ctx, s.tasks, id, &doc); err != nil {
		return nil, err
	}
	doc.Task.ID = doc.ID.Hex()
	return &doc.Task, nil
}

func (s *MongoStore) FindTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	out := []models.Task{}
	if f.matchesNothing() {
		return out, nil
	}
	filter := bson.D{}
	if f.ListIDs != nil {
		filter = append(filter, bson.E{Key: "id_list", Value: bson.M{"$in": f.ListIDs}})
	}
	if f.TitleKey != "" {
		filter = append(filter, bson.E{Key: "title_key", Value: f.TitleKey})
	}
	if f.ExcludeID != "" {
		filter = excludeID(filter, f.ExcludeID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "id_list", Value: 1}, {Key: "title", Value: 1}, {Key: "_id", Value: 1}})

	var docs []taskDoc
	if err := s.findAll(ctx, s.tasks, filter, opts, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		d.Task.ID = d.ID.Hex()
		out = append(out, d.Task)
	}
	return out, nil
}

func (s *MongoStore) UpdateTask(ctx context.Context, id string, p models.TaskPatch) (int64, error) {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
		set["title_key"] = models.NameKey(*p.Title)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.ListID != nil {
		if _, err := s.GetList(ctx, *p.ListID); err != nil {
			return 0, err
		}
		set["id_list"] = *p.ListID
	}
	return s.updateByID(ctx, s.tasks, id, set)
}

func (s *MongoStore) DeleteTask(ctx context.Context, id string) error {
	return s.deleteByID(ctx, s.tasks, id)
}

func (s *MongoStore) CountTasks(ctx context.Context, listID string) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, bson.M{"id_list": listID})
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Clear deletes every document. Used by integration tests.
func (s *MongoStore) Clear(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{s.tasks, s.lists, s.workspaces, s.users} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clear %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) findAll(ctx context.Context, coll *mongo.Collection, filter bson.D, opts *options.FindOptions, out any) error {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}
