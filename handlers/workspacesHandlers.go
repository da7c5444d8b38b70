package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"taskboard/models"
	"taskboard/services"
	"taskboard/utilities"
)

func (h *Handler) CreateWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in models.WorkspaceInput
	if f := decodeBody(r, &in); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.board.CreateWorkspace(r.Context(), actor, in)
	if err == nil && res.Success {
		utilities.LogInfo("CreateWorkspaceHandler: workspace %q created by %s", in.Name, actor.UserID)
	}
	writeResult(w, "CreateWorkspaceHandler: failed to create workspace", res, err, http.StatusCreated)
}

// ListWorkspacesHandler accepts ?skip=&limit= and, for admins, ?all=true.
func (h *Handler) ListWorkspacesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	page, all, f := pageParams(r)
	if f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.board.ListWorkspaces(r.Context(), actor, page, all)
	writeResult(w, "ListWorkspacesHandler: failed to list workspaces", res, err, http.StatusOK)
}

func pageParams(r *http.Request) (services.Page, bool, *services.Failure) {
	q := r.URL.Query()
	var page services.Page
	var all bool
	var err error

	if v := q.Get("skip"); v != "" {
		if page.Skip, err = strconv.Atoi(v); err != nil {
			return page, false, invalidParam("skip must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			return page, false, invalidParam("limit must be an integer")
		}
	}
	if v := q.Get("all"); v != "" {
		if all, err = strconv.ParseBool(v); err != nil {
			return page, false, invalidParam("all must be true or false")
		}
	}
	return page, all, nil
}

func (h *Handler) GetWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.board.GetWorkspace(r.Context(), actor, mux.Vars(r)["workspace_id"])
	writeResult(w, "GetWorkspaceHandler: failed to load workspace", res, err, http.StatusOK)
}

// GetWorkspaceBoardHandler returns the workspace with its lists and their tasks.
func (h *Handler) GetWorkspaceBoardHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.board.GetWorkspaceBoard(r.Context(), actor, mux.Vars(r)["workspace_id"])
	writeResult(w, "GetWorkspaceBoardHandler: failed to load board", res, err, http.StatusOK)
}

func (h *Handler) UpdateWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var patch models.WorkspacePatch
	if f := decodeBody(r, &patch); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.board.UpdateWorkspace(r.Context(), actor, mux.Vars(r)["workspace_id"], patch)
	writeResult(w, "UpdateWorkspaceHandler: failed to update workspace", res, err, http.StatusOK)
}

func (h *Handler) DeleteWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["workspace_id"]
	res, err := h.board.DeleteWorkspace(r.Context(), actor, id)
	if err == nil && res.Success {
		utilities.LogInfo("DeleteWorkspaceHandler: workspace %s deleted", id)
	}
	writeResult(w, "DeleteWorkspaceHandler: failed to delete workspace", res, err, http.StatusOK)
}
