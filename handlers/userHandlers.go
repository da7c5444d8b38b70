package handlers

import (
	"net/http"

	"taskboard/models"
	"taskboard/utilities"
)

// RegisterHandler creates the identity-provider account and the stored profile.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if f := decodeBody(r, &in); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err == nil && res.Success {
		utilities.LogInfo("RegisterHandler: user registered: %s", in.Email)
	}
	writeResult(w, "RegisterHandler: registration failed", res, err, http.StatusCreated)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if f := decodeBody(r, &in); f != nil {
		writeFailure(w, f)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	writeResult(w, "LoginHandler: login failed", res, err, http.StatusOK)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.accounts.Logout(r.Context(), actor)
	writeResult(w, "LogoutHandler: logout failed", res, err, http.StatusOK)
}

// UserHandler returns the profile of the authenticated user.
func (h *Handler) UserHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	res, err := h.accounts.Me(r.Context(), actor)
	writeResult(w, "UserHandler: failed to load user", res, err, http.StatusOK)
}
