package models

import (
	"strings"
	"time"
)

// List groups tasks inside a workspace.
type List struct {
	ID          string    `json:"id" firestore:"-" bson:"-"`
	Title       string    `json:"title" firestore:"title" bson:"title"`
	TitleKey    string    `json:"-" firestore:"title_key" bson:"title_key"`
	Description string    `json:"description" firestore:"description" bson:"description"`
	WorkspaceID string    `json:"id_workspace" firestore:"id_workspace" bson:"id_workspace"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updated_at" bson:"updated_at"`
}

type ListInput struct {
	Title       string `json:"title" validate:"required,min=1,max=100,listtitle"`
	Description string `json:"description" validate:"max=500"`
}

func (in *ListInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

type ListPatch struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=100,listtitle"`
	Description *string `json:"description" validate:"omitnil,max=500"`
}

func (p *ListPatch) Normalize() {
	p.Title = trimOrNil(p.Title)
	p.Description = trimOrNil(p.Description)
}

func (p ListPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil
}

func (p ListPatch) Changes(l *List) bool {
	return (p.Title != nil && *p.Title != l.Title) ||
		(p.Description != nil && *p.Description != l.Description)
}

func (p ListPatch) Apply(l *List) {
	if p.Title != nil {
		l.Title = *p.Title
		l.TitleKey = NameKey(*p.Title)
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
}

// ListWithTasks is a list together with the tasks that reference it.
type ListWithTasks struct {
	List
	Tasks []Task `json:"tasks"`
}
