package main

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"taskboard/handlers"
	"taskboard/utilities"
)

func newRouter(h *handlers.Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware)

	// Public
	r.HandleFunc("/", h.RootHandler).Methods("GET")
	r.HandleFunc("/health", h.HealthHandler).Methods("GET")
	r.HandleFunc("/ready", h.ReadyHandler).Methods("GET")
	r.HandleFunc("/users", h.RegisterHandler).Methods("POST")
	r.HandleFunc("/login", h.LoginHandler).Methods("POST")

	api := r.NewRoute().Subrouter()
	api.Use(h.AuthMiddleware)

	// User
	api.HandleFunc("/auth/logout", h.LogoutHandler).Methods("POST")
	api.HandleFunc("/user/info", h.UserHandler).Methods("GET")

	// Workspaces
	api.HandleFunc("/workspaces", h.ListWorkspacesHandler).Methods("GET")
	api.HandleFunc("/workspaces", h.CreateWorkspaceHandler).Methods("POST")
	api.HandleFunc("/workspaces/{workspace_id}", h.GetWorkspaceHandler).Methods("GET")
	api.HandleFunc("/workspaces/{workspace_id}", h.UpdateWorkspaceHandler).Methods("PUT")
	api.HandleFunc("/workspaces/{workspace_id}", h.DeleteWorkspaceHandler).Methods("DELETE")
	api.HandleFunc("/workspaces/{workspace_id}/board", h.GetWorkspaceBoardHandler).Methods("GET")
	api.HandleFunc("/workspaces/{workspace_id}/tasks", h.ListTasksHandler).Methods("GET")

	// Lists
	api.HandleFunc("/workspaces/{workspace_id}/lists", h.ListListsHandler).Methods("GET")
	api.HandleFunc("/workspaces/{workspace_id}/lists", h.CreateListHandler).Methods("POST")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}", h.GetListHandler).Methods("GET")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}", h.UpdateListHandler).Methods("PUT")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}", h.DeleteListHandler).Methods("DELETE")

	// Tasks
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}/tasks", h.CreateTaskHandler).Methods("POST")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}/tasks/{task_id}", h.GetTaskHandler).Methods("GET")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}/tasks/{task_id}", h.UpdateTaskHandler).Methods("PUT")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}/tasks/{task_id}", h.DeleteTaskHandler).Methods("DELETE")
	api.HandleFunc("/workspaces/{workspace_id}/lists/{list_id}/tasks/{task_id}/move", h.MoveTaskHandler).Methods("PUT")

	headers := gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	methods := gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	origins := gorillahandlers.AllowedOrigins(allowedOrigins)
	utilities.LogInfo("CORS allowed origins: %v", allowedOrigins)

	return gorillahandlers.CORS(headers, methods, origins)(r)
}
