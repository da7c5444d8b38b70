package models

import (
	"strings"
	"time"
)

// Workspace is the top-level container, owned by exactly one user.
type Workspace struct {
	ID          string    `json:"id" firestore:"-" bson:"-"`
	Name        string    `json:"name" firestore:"name" bson:"name"`
	NameKey     string    `json:"-" firestore:"name_key" bson:"name_key"`
	Description string    `json:"description" firestore:"description" bson:"description"`
	OwnerUserID string    `json:"id_user" firestore:"id_user" bson:"id_user"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updated_at" bson:"updated_at"`
}

type WorkspaceInput struct {
	Name        string `json:"name" validate:"required,min=1,max=100,wsname"`
	Description string `json:"description" validate:"max=500"`
}

func (in *WorkspaceInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

// WorkspacePatch enumerates the mutable workspace fields. A nil field is left untouched.
type WorkspacePatch struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=100,wsname"`
	Description *string `json:"description" validate:"omitnil,max=500"`
}

// Normalize trims every field and drops the ones left empty, so an empty
// value in a patch means "keep the current one".
func (p *WorkspacePatch) Normalize() {
	p.Name = trimOrNil(p.Name)
	p.Description = trimOrNil(p.Description)
}

func (p WorkspacePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

// Changes reports whether applying p to w would modify it.
func (p WorkspacePatch) Changes(w *Workspace) bool {
	return (p.Name != nil && *p.Name != w.Name) ||
		(p.Description != nil && *p.Description != w.Description)
}

// Apply writes the patch onto w, keeping NameKey in sync.
func (p WorkspacePatch) Apply(w *Workspace) {
	if p.Name != nil {
		w.Name = *p.Name
		w.NameKey = NameKey(*p.Name)
	}
	if p.Description != nil {
		w.Description = *p.Description
	}
}

// WorkspaceBoard is the denormalized read shape of a workspace with its lists and their tasks.
type WorkspaceBoard struct {
	Workspace
	Lists []ListWithTasks `json:"lists"`
}

// NameKey is the normalized form names and titles are compared by.
func NameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
