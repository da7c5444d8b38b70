package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/models"
)

func (h *Handler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in models.TaskInput
	if f := decodeBody(r, &in); f != nil {
		writeFailure(w, f)
		return
	}

	scope := scopeFrom(r)
	res, err := h.board.CreateTask(r.Context(), actor, scope, scope.ListID, in)
	writeResult(w, "CreateTaskHandler: failed to create task", res, err, http.StatusCreated)
}

// ListTasksHandler returns every task of the workspace with its list title.
func (h *Handler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.board.ListTasks(r.Context(), actor, mux.Vars(r)["workspace_id"])
	writeResult(w, "ListTasksHandler: failed to list tasks", res, err, http.StatusOK)
}

func (h *Handler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.board.GetTask(r.Context(), actor, scopeFrom(r), mux.Vars(r)["task_id"])
	writeResult(w, "GetTaskHandler: failed to load task", res, err, http.StatusOK)
}

func (h *Handler) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var patch models.TaskPatch
	if f := decodeBody(r, &patch); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.board.UpdateTask(r.Context(), actor, scopeFrom(r), mux.Vars(r)["task_id"], patch)
	writeResult(w, "UpdateTaskHandler: failed to update task", res, err, http.StatusOK)
}

// MoveTaskHandler reassigns a task to another list of the same workspace.
func (h *Handler) MoveTaskHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in models.MoveTaskInput
	if f := decodeBody(r, &in); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.board.MoveTask(r.Context(), actor, scopeFrom(r), mux.Vars(r)["task_id"], in)
	writeResult(w, "MoveTaskHandler: failed to move task", res, err, http.StatusOK)
}

func (h *Handler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.board.DeleteTask(r.Context(), actor, scopeFrom(r), mux.Vars(r)["task_id"])
	writeResult(w, "DeleteTaskHandler: failed to delete task", res, err, http.StatusOK)
}
