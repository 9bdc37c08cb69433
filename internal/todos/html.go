package todos

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexPage struct {
	Todos []Todo
	Error string
}

// RegisterHTMLRoutes mounts the server-rendered pages. Mutating routes redirect
// to the list; their failures are logged and otherwise dropped. With no store
// every route answers 503.
func RegisterHTMLRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Get("/", renderIndex(svc, logger))

	r.Post("/add", redirectAfter(logger, "add", func(r *http.Request) error {
		if err := parseForm(r); err != nil {
			return err
		}
		_, err := svc.Add(r.Context(), r.PostForm.Get("title"))
		return err
	}))

	r.Post("/update/{id}", redirectAfter(logger, "update", func(r *http.Request) error {
		in, err := parseUpdateForm(r)
		if err != nil {
			return err
		}
		_, err = svc.Update(r.Context(), chi.URLParam(r, "id"), in)
		return err
	}))

	r.Post("/delete/{id}", redirectAfter(logger, "delete", func(r *http.Request) error {
		return svc.Delete(r.Context(), chi.URLParam(r, "id"))
	}))
}

func renderIndex(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		page := indexPage{}

		list, err := svc.List(r.Context())
		switch {
		case err == nil:
			page.Todos = list
		case errors.Is(err, ErrUnavailable):
			status = http.StatusServiceUnavailable
			page.Error = unavailableMessage
		default:
			logger.ErrorContext(r.Context(), "todo_store_error",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			status = http.StatusInternalServerError
			page.Error = "Failed to fetch todos"
		}

		var buf bytes.Buffer
		if err := indexTmpl.Execute(&buf, page); err != nil {
			logger.ErrorContext(r.Context(), "template_error", slog.String("error", err.Error()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write(buf.Bytes())
	}
}

func redirectAfter(logger *slog.Logger, op string, do func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := do(r)
		if errors.Is(err, ErrUnavailable) {
			http.Error(w, unavailableMessage, http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			logger.WarnContext(r.Context(), "todo_"+op+"_failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
