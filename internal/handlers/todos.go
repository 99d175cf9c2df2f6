package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/vavebg/ops-console/internal/models"
	"github.com/vavebg/ops-console/internal/todo"
	"github.com/vavebg/ops-console/internal/validation"
)

const (
	// MaxTaskTextLength is the maximum length for task text
	MaxTaskTextLength = 10000
)

// TodoHandler handles task and timer requests
type TodoHandler struct {
	store *todo.Store
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(store *todo.Store) *TodoHandler {
	return &TodoHandler{store: store}
}

// RegisterRoutes registers todo routes on the given router.
// The router should already have the /todos prefix.
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods("GET")
	r.HandleFunc("", h.CreateTodo).Methods("POST")
	r.HandleFunc("/{id}/done", h.ToggleDone).Methods("POST")
	r.HandleFunc("/{id}/timer", h.ToggleTimer).Methods("POST")
	r.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
}

// CreateTodoRequest represents a create task request
type CreateTodoRequest struct {
	Text           string `json:"text" validate:"required,min=1,max=10000"`
	Priority       int    `json:"priority"`
	AllocatedHours int    `json:"allocated_hours"`
}

// ListTodosResponse carries the sorted task list plus derived counts
type ListTodosResponse struct {
	Todos   []models.TodoItem `json:"todos"`
	Running int               `json:"running"`
	Pending int               `json:"pending"`
}

// ListTodos returns all tasks in display order
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	response := ListTodosResponse{
		Todos:   h.store.Sorted(),
		Running: h.store.RunningCount(),
		Pending: h.store.PendingCount(),
	}
	respondJSON(w, http.StatusOK, response)
}

// CreateTodo adds a task
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON in request body")
		return
	}

	req.Text = validation.SanitizeText(req.Text)

	if err := validation.Validate.Struct(&req); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "text is required and must be at most 10000 characters")
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	item := h.store.Add(r.Context(), req.Text, req.Priority, req.AllocatedHours)
	if item == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "text must not be empty")
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// ToggleDone flips a task's done flag
func (h *TodoHandler) ToggleDone(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.store.ToggleDone(r.Context(), id) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	respondJSON(w, http.StatusOK, ListTodosResponse{
		Todos:   h.store.Sorted(),
		Running: h.store.RunningCount(),
		Pending: h.store.PendingCount(),
	})
}

// ToggleTimer starts or stops a task's countdown. Done and expired tasks are
// left untouched but still answer 200.
func (h *TodoHandler) ToggleTimer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.store.ToggleTimer(r.Context(), id) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	respondJSON(w, http.StatusOK, ListTodosResponse{
		Todos:   h.store.Sorted(),
		Running: h.store.RunningCount(),
		Pending: h.store.PendingCount(),
	})
}

// DeleteTodo removes a task
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.store.Remove(r.Context(), id) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}
