package todos

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxFormMemory = 1 << 20

const unavailableMessage = "Todo store is unavailable: credentials or database/container could not be resolved"

type messageResponse struct {
	Message string `json:"message"`
}

type errResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes mounts the JSON API.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Get("/", listTodos(svc, logger))
	r.Post("/add", addTodo(svc, logger))
	r.Post("/update/{id}", updateTodo(svc, logger))
	r.Post("/delete/{id}", deleteTodo(svc, logger))
}

func listTodos(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			writeFailure(w, r, logger, err, "Failed to fetch todos")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func addTodo(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(r); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "Invalid form body"})
			return
		}

		_, err := svc.Add(r.Context(), r.PostForm.Get("title"))
		if err != nil {
			writeFailure(w, r, logger, err, "Failed to create todo")
			return
		}
		writeJSON(w, http.StatusCreated, messageResponse{Message: "Todo created successfully"})
	}
}

func updateTodo(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := parseUpdateForm(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "Invalid form body"})
			return
		}

		_, err = svc.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeFailure(w, r, logger, err, "Failed to update todo")
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Todo updated successfully"})
	}
}

func deleteTodo(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, r, logger, err, "Failed to delete todo")
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted successfully"})
	}
}

// parseUpdateForm reads title only when the key is present and treats the
// complete key as a checkbox.
func parseUpdateForm(r *http.Request) (UpdateInput, error) {
	if err := parseForm(r); err != nil {
		return UpdateInput{}, err
	}
	var in UpdateInput
	if vals, ok := r.PostForm["title"]; ok && len(vals) > 0 {
		title := vals[0]
		in.Title = &title
	}
	_, in.Complete = r.PostForm["complete"]
	return in, nil
}

// parseForm accepts urlencoded and multipart bodies; both land in r.PostForm.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

// writeFailure maps service errors to a status and a fixed message. Store
// detail goes to the log only.
func writeFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, failMsg string) {
	switch {
	case errors.Is(err, ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errResponse{Error: unavailableMessage})
	case errors.Is(err, ErrTitleRequired):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "Title is required"})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "Todo not found"})
	default:
		logger.ErrorContext(r.Context(), "todo_store_error",
			slog.String("path", r.URL.Path),
			slog.String("req_id", chimw.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: failMsg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
