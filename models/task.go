package models

import (
	"strings"
	"time"
)

// Task is a leaf work item; it belongs to exactly one list at a time.
type Task struct {
	ID          string    `json:"id" firestore:"-" bson:"-"`
	Title       string    `json:"title" firestore:"title" bson:"title"`
	TitleKey    string    `json:"-" firestore:"title_key" bson:"title_key"`
	Description string    `json:"description" firestore:"description" bson:"description"`
	ListID      string    `json:"id_list" firestore:"id_list" bson:"id_list"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updated_at" bson:"updated_at"`
}

type TaskInput struct {
	Title       string `json:"title" validate:"required,min=1,max=100,tasktitle"`
	Description string `json:"description" validate:"max=500"`
}

func (in *TaskInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

// TaskPatch covers both edits and moves. ListID is only set by MoveTask;
// it is not accepted from update payloads.
type TaskPatch struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=100,tasktitle"`
	Description *string `json:"description" validate:"omitnil,max=500"`
	ListID      *string `json:"-"`
}

func (p *TaskPatch) Normalize() {
	p.Title = trimOrNil(p.Title)
	p.Description = trimOrNil(p.Description)
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ListID == nil
}

func (p TaskPatch) Changes(t *Task) bool {
	return (p.Title != nil && *p.Title != t.Title) ||
		(p.Description != nil && *p.Description != t.Description) ||
		(p.ListID != nil && *p.ListID != t.ListID)
}

func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
		t.TitleKey = NameKey(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ListID != nil {
		t.ListID = *p.ListID
	}
}

// MoveTaskInput is the payload of a move request.
type MoveTaskInput struct {
	NewListID string `json:"new_list_id" validate:"required"`
}

// TaskWithList is a task joined with the title of its list.
type TaskWithList struct {
	Task
	ListTitle string `json:"list_title"`
}
