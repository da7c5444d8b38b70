package services

import "taskboard/models"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string `json:"user_id"`
	Admin  bool   `json:"admin"`
}

// Authorize allows the actor only when it owns the workspace. It fails closed
// on an anonymous actor.
func Authorize(ws *models.Workspace, actor Actor) error {
	if actor.UserID == "" || ws == nil || ws.OwnerUserID != actor.UserID {
		return &Failure{
			Code:     CodeUnauthorized,
			Resource: LevelWorkspace,
			Message:  "you do not have permission to access this workspace",
		}
	}
	return nil
}
