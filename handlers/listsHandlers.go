package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/models"
)

func (h *Handler) CreateListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in models.ListInput
	if f := decodeBody(r, &in); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.board.CreateList(r.Context(), actor, mux.Vars(r)["workspace_id"], in)
	writeResult(w, "CreateListHandler: failed to create list", res, err, http.StatusCreated)
}

func (h *Handler) ListListsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.board.ListLists(r.Context(), actor, mux.Vars(r)["workspace_id"])
	writeResult(w, "ListListsHandler: failed to list lists", res, err, http.StatusOK)
}

func (h *Handler) GetListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	scope := scopeFrom(r)
	res, err := h.board.GetList(r.Context(), actor, scope, scope.ListID)
	writeResult(w, "GetListHandler: failed to load list", res, err, http.StatusOK)
}

func (h *Handler) UpdateListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var patch models.ListPatch
	if f := decodeBody(r, &patch); f != nil {
		writeFailure(w, f)
		return
	}

	scope := scopeFrom(r)
	res, err := h.board.UpdateList(r.Context(), actor, scope, scope.ListID, patch)
	writeResult(w, "UpdateListHandler: failed to update list", res, err, http.StatusOK)
}

func (h *Handler) DeleteListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	scope := scopeFrom(r)
	res, err := h.board.DeleteList(r.Context(), actor, scope, scope.ListID)
	writeResult(w, "DeleteListHandler: failed to delete list", res, err, http.StatusOK)
}
