package testutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"garage-go/internal/garage"
	"garage-go/internal/model"
)

// RecordedRequest is what the server saw of one request.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	UserAgent     string
}

// Server exposes a FakeBackend over the backend's REST routes. The acting
// user is taken from each request's bearer token, so requests are expected
// one at a time.
type Server struct {
	*httptest.Server
	Backend *FakeBackend

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewServer starts a server over backend and closes it when the test ends.
func NewServer(t *testing.T, backend *FakeBackend) *Server {
	t.Helper()
	s := &Server{Backend: backend}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Requests returns the requests received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			UserAgent:     r.Header.Get("User-Agent"),
		})
		s.mu.Unlock()
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.Backend.Authenticate(token)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) routes() http.Handler {
	b := s.Backend
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			var body struct{ Email, Password string }
			if !decode(w, r, &body) {
				return
			}
			respond(w)(b.Login(r.Context(), body.Email, body.Password))
		})
		r.Post("/register", func(w http.ResponseWriter, r *http.Request) {
			var body model.RegisterRequest
			if !decode(w, r, &body) {
				return
			}
			respond(w)(b.Register(r.Context(), body))
		})
		r.Post("/google", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Credential string `json:"credential"`
			}
			if !decode(w, r, &body) {
				return
			}
			respond(w)(b.GoogleLogin(r.Context(), body.Credential))
		})
		r.Post("/sms/send", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				PhoneNumber string `json:"phone_number"`
			}
			if !decode(w, r, &body) {
				return
			}
			err := b.SendSMSCode(r.Context(), body.PhoneNumber)
			respond(w)(map[string]string{"message": "Verification code sent successfully"}, err)
		})
		r.Post("/sms/verify", func(w http.ResponseWriter, r *http.Request) {
			var body model.SMSVerifyRequest
			if !decode(w, r, &body) {
				return
			}
			respond(w)(b.VerifySMSCode(r.Context(), body))
		})
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.CurrentUser(r.Context()))
		})
	})

	r.Route("/api/builds", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.ListBuilds(r.Context()))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var fields map[string]any
			if !decode(w, r, &fields) {
				return
			}
			respond(w)(b.CreateBuild(r.Context(), fields))
		})
		r.Get("/{ref}", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.GetBuild(r.Context(), chi.URLParam(r, "ref")))
		})
		r.Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var fields map[string]any
			if !decode(w, r, &fields) {
				return
			}
			respond(w)(b.UpdateBuild(r.Context(), pathID(r, "id"), fields))
		})
		r.Put("/{id}/{section}", func(w http.ResponseWriter, r *http.Request) {
			doc, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, err)
				return
			}
			err = b.PutSection(r.Context(), pathID(r, "id"), model.Section(chi.URLParam(r, "section")), doc)
			respondOK(w, err, "Section updated successfully")
		})
		r.Post("/{id}/upload-component-photo", func(w http.ResponseWriter, r *http.Request) {
			f, name, ok := formFile(w, r)
			if !ok {
				return
			}
			defer f.Close()
			respond(w)(b.UploadComponentPhoto(r.Context(), pathID(r, "id"), r.FormValue("component_type"), name, f))
		})
		r.Get("/{id}/snapshots", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.ListSnapshots(r.Context(), pathID(r, "id")))
		})
		r.Post("/{id}/restore/{snapshot}", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.RestoreSnapshot(r.Context(), pathID(r, "id"), pathID(r, "snapshot")))
		})
		r.Post("/{id}/maintenance", func(w http.ResponseWriter, r *http.Request) {
			var in model.MaintenanceInput
			if !decode(w, r, &in) {
				return
			}
			respond(w)(b.CreateMaintenance(r.Context(), pathID(r, "id"), in))
		})
		r.Get("/{id}/todos", func(w http.ResponseWriter, r *http.Request) {
			filter := model.TodoFilter{
				Status:   model.TodoStatus(r.URL.Query().Get("status")),
				Category: r.URL.Query().Get("category"),
			}
			respond(w)(b.ListTodos(r.Context(), pathID(r, "id"), filter))
		})
		r.Get("/{id}/todos/stats", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.TodoStats(r.Context(), pathID(r, "id")))
		})
		r.Post("/{id}/todos", func(w http.ResponseWriter, r *http.Request) {
			var in model.TodoInput
			if !decode(w, r, &in) {
				return
			}
			respond(w)(b.CreateTodo(r.Context(), pathID(r, "id"), in))
		})
		r.Post("/{id}/todos/reorder", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				TodoIDs []int64 `json:"todo_ids"`
			}
			if !decode(w, r, &body) {
				return
			}
			respondOK(w, b.ReorderTodos(r.Context(), pathID(r, "id"), body.TodoIDs), "Todos reordered")
		})
		r.Route("/{id}/components/{type}/notes", func(r chi.Router) {
			comp := func(r *http.Request) model.ComponentType { return model.ComponentType(chi.URLParam(r, "type")) }
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				respond(w)(b.ListNotes(r.Context(), pathID(r, "id"), comp(r)))
			})
			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var body struct{ Content string }
				if !decode(w, r, &body) {
					return
				}
				respond(w)(b.AddNote(r.Context(), pathID(r, "id"), comp(r), body.Content))
			})
			r.Put("/{note}", func(w http.ResponseWriter, r *http.Request) {
				var body struct{ Content string }
				if !decode(w, r, &body) {
					return
				}
				respond(w)(b.UpdateNote(r.Context(), pathID(r, "id"), comp(r), chi.URLParam(r, "note"), body.Content))
			})
			r.Delete("/{note}", func(w http.ResponseWriter, r *http.Request) {
				respondOK(w, b.DeleteNote(r.Context(), pathID(r, "id"), comp(r), chi.URLParam(r, "note")), "Note deleted")
			})
		})
	})

	r.Get("/api/snapshots/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w)(b.GetSnapshot(r.Context(), pathID(r, "id")))
	})
	// The first id is the newer snapshot, the second the one compared to.
	r.Get("/api/snapshots/{id}/diff/{compare}", func(w http.ResponseWriter, r *http.Request) {
		respond(w)(b.DiffSnapshots(r.Context(), pathID(r, "compare"), pathID(r, "id")))
	})

	r.Route("/api/maintenance/{id}/attachments", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			f, name, ok := formFile(w, r)
			if !ok {
				return
			}
			defer f.Close()
			respond(w)(b.UploadAttachment(r.Context(), pathID(r, "id"), name, r.FormValue("description"), f))
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.ListAttachments(r.Context(), pathID(r, "id")))
		})
	})

	r.Route("/api/todos/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.GetTodo(r.Context(), pathID(r, "id")))
		})
		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			var patch model.TodoPatch
			if !decode(w, r, &patch) {
				return
			}
			respondOK(w, b.UpdateTodo(r.Context(), pathID(r, "id"), patch), "Todo updated successfully")
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			respondOK(w, b.DeleteTodo(r.Context(), pathID(r, "id")), "Todo deleted")
		})
		r.Post("/complete", func(w http.ResponseWriter, r *http.Request) {
			var c model.TodoCompletion
			if !decode(w, r, &c) {
				return
			}
			respond(w)(b.CompleteTodo(r.Context(), pathID(r, "id"), c))
		})
		r.Post("/reopen", func(w http.ResponseWriter, r *http.Request) {
			respondOK(w, b.ReopenTodo(r.Context(), pathID(r, "id")), "Todo reopened")
		})
	})

	r.Route("/api/subscription", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.SubscriptionStatus(r.Context()))
		})
		r.Post("/checkout", func(w http.ResponseWriter, r *http.Request) {
			url, err := b.CreateCheckoutSession(r.Context())
			respond(w)(map[string]string{"checkout_url": url}, err)
		})
		r.Post("/portal", func(w http.ResponseWriter, r *http.Request) {
			url, err := b.CreatePortalSession(r.Context())
			respond(w)(map[string]string{"portal_url": url}, err)
		})
	})

	r.Route("/api/components/{type}", func(r chi.Router) {
		ct := func(r *http.Request) model.ComponentType { return model.ComponentType(chi.URLParam(r, "type")) }
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in model.ComponentInput
			if !decode(w, r, &in) {
				return
			}
			respond(w)(b.CreateComponent(r.Context(), ct(r), in))
		})
		r.Get("/templates", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.ListTemplates(r.Context(), ct(r)))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			respond(w)(b.GetComponent(r.Context(), ct(r), pathID(r, "id")))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in model.ComponentInput
			if !decode(w, r, &in) {
				return
			}
			respond(w)(b.UpdateComponent(r.Context(), ct(r), pathID(r, "id"), in))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			respondOK(w, b.DeleteComponent(r.Context(), ct(r), pathID(r, "id")), "Component deleted")
		})
		r.Post("/{id}/clone", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				NewName string `json:"new_name"`
			}
			if !decode(w, r, &body) {
				return
			}
			respond(w)(b.CloneComponent(r.Context(), ct(r), pathID(r, "id"), body.NewName))
		})
	})

	return r
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, Reject(http.StatusUnprocessableEntity, "invalid request body: "+err.Error()))
		return false
	}
	return true
}

func formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, Reject(http.StatusBadRequest, "invalid multipart body"))
		return nil, "", false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, Reject(http.StatusUnprocessableEntity, "file is required"))
		return nil, "", false
	}
	return f, hdr.Filename, true
}

// respond returns a writer for a (value, error) pair.
func respond(w http.ResponseWriter) func(any, error) {
	return func(v any, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondOK(w http.ResponseWriter, err error, message string) {
	respond(w)(map[string]any{"success": true, "message": message}, err)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := err.Error()
	var rej *Rejection
	switch {
	case errors.As(err, &rej):
		status, detail = rej.Status, rej.Detail
	case errors.Is(err, garage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, garage.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, garage.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, garage.ErrValidation):
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
