package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

const msgTaskNotFound = "Task not found."

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	responder
	service *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, rs responder) *TaskHandler {
	return &TaskHandler{responder: rs, service: svc}
}

// HandleList handles GET /api/v1/tasks requests.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
		return
	}

	q := r.URL.Query()
	tasks, err := h.service.List(r.Context(), userID, q.Get("status"), q.Get("due"))
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		h.serverError(w, r, "An error occurred while listing tasks.", err)
		return
	}

	writeJSON(w, http.StatusOK, model.TasksToResponse(tasks))
}

// HandleCreate handles POST /api/v1/tasks requests.
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
		return
	}

	var req model.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		h.serverError(w, r, "An error occurred while creating the task.", err)
		return
	}

	writeJSON(w, http.StatusCreated, task.Response())
}

// HandleGet handles GET /api/v1/tasks/{id} requests.
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), userID, taskID)
	if err != nil {
		h.taskError(w, r, "An error occurred while viewing the task.", err)
		return
	}

	writeJSON(w, http.StatusOK, task.Response())
}

// HandleUpdate handles PUT /api/v1/tasks/{id} requests.
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req model.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.service.Update(r.Context(), userID, taskID, req)
	if err != nil {
		h.taskError(w, r, "An error occurred while updating the task.", err)
		return
	}

	writeJSON(w, http.StatusOK, task.Response())
}

// HandleDelete handles DELETE /api/v1/tasks/{id} requests.
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		h.taskError(w, r, "An error occurred while deleting the task.", err)
		return
	}

	writeJSON(w, http.StatusOK, messageBody("Task deleted successfully."))
}

// HandleRestore handles POST /api/v1/tasks/{id}/restore requests.
func (h *TaskHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := h.target(w, r)
	if !ok {
		return
	}

	task, err := h.service.Restore(r.Context(), userID, taskID)
	if err != nil {
		h.taskError(w, r, "An error occurred while restoring the task.", err)
		return
	}

	writeJSON(w, http.StatusOK, task.Response())
}

// HandleTrashed handles /api/v1/tasks/trashed requests.
func (h *TaskHandler) HandleTrashed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
		return
	}

	tasks, err := h.service.ListTrashed(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "An error occurred while listing deleted tasks.", err)
		return
	}

	writeJSON(w, http.StatusOK, model.TasksToResponse(tasks))
}

// target resolves the caller and the {id} path parameter. A malformed id is
// reported as a missing task.
func (h *TaskHandler) target(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
		return 0, 0, false
	}

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || taskID <= 0 {
		writeJSON(w, http.StatusNotFound, messageBody(msgTaskNotFound))
		return 0, 0, false
	}

	return userID, taskID, true
}

func (h *TaskHandler) taskError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, messageBody(msgTaskNotFound))
	case writeValidation(w, err):
	default:
		h.serverError(w, r, msg, err)
	}
}
