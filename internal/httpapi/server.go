package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
)

type Dependencies struct {
	Logger        zerolog.Logger
	Addr          string
	AccessService *service.AccessService
	AdminService  *service.AdminService
}

type Server struct {
	httpServer    *http.Server
	logger        zerolog.Logger
	router        chi.Router
	accessService *service.AccessService
	adminService  *service.AdminService
}

func NewServer(d Dependencies) *Server {
	r := chi.NewRouter()

	s := &Server{
		logger:        d.Logger,
		router:        r,
		accessService: d.AccessService,
		adminService:  d.AdminService,
	}

	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/access_request", s.handleAccessRequest)

	if d.AdminService != nil {
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(basicAuth(d.AdminService))

			r.Get("/me", s.handleMe)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleQueryUsers)
				r.Post("/", s.handleCreateUser)
				r.Get("/{user_id}", s.handleGetUser)
				r.Patch("/{user_id}", s.handleUpdateUser)
				r.Delete("/{user_id}", s.handleDeleteUser)
			})

			r.Route("/passes", func(r chi.Router) {
				r.Get("/", s.handleQueryPasses)
				r.Post("/", s.handleIssuePass)
				r.Get("/{pass_id}", s.handleGetPass)
				r.Delete("/{pass_id}", s.handleDeletePass)
				r.Post("/{pass_id}/sessions", s.handleAddSessions)
				r.Post("/{pass_id}/extend", s.handleExtendTimePass)
			})
		})
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"server_time": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// handleAccessRequest answers in the encoding it was asked in: protobuf
// bodies (a google.protobuf.Struct) get protobuf back, everything else JSON.
func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	useProto := isProtobuf(r)

	var req types.AccessRequest
	if useProto {
		var msg structpb.Struct
		if err := readProto(r, &msg); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		var err error
		if req, err = accessRequestFromStruct(&msg); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", err.Error())
			return
		}
	} else {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
	}

	status := http.StatusOK
	resp, err := s.accessService.Decide(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUserID):
			writeError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
			return
		case errors.Is(err, service.ErrNoPass):
			// The denial body still goes out so readers can show a reason.
			status = http.StatusNotFound
		default:
			zerolog.Ctx(r.Context()).Error().Err(err).Int32("user_id", req.UserID).Msg("access_request")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
	}

	if useProto {
		msg, err := accessResponseToStruct(resp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, status, msg)
		return
	}
	writeJSON(w, status, resp)
}
