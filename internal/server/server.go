package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/brandtiboy/prototype-test/internal/session"
)

//go:embed assets/overlay.js
var assets embed.FS

// Server provides the HTTP surface: the session API consumed by the overlay
// shim and the moderator console, plus static hosting of the prototype.
type Server struct {
	service *Service
	addr    string
	dir     string
	server  *http.Server
}

// NewServer creates the HTTP server for the given prototype directory.
func NewServer(service *Service, addr, prototypeDir string) *Server {
	return &Server{
		service: service,
		addr:    addr,
		dir:     prototypeDir,
	}
}

// Handler builds the route table. Split from Start so tests can drive the
// full surface through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/session/", s.handleSessionAction)

	mux.HandleFunc("/pt/overlay.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		data, _ := assets.ReadFile("assets/overlay.js")
		w.Write(data)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything else is the prototype itself.
	mux.Handle("/", http.FileServer(http.Dir(s.dir)))

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("serving prototype from %s on %s", s.dir, s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleConfig serves the overlay's render settings.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.service.cfg
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project":           cfg.Project,
		"primaryColor":      cfg.PrimaryColor,
		"collectTesterInfo": cfg.CollectInfo(),
		"allowSkip":         cfg.SkipAllowed(),
	})
}

// handleSession serves the current snapshot.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Controller().Snapshot())
}

// handleSessionAction dispatches /api/session/{action}.
func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session/")

	if action == "export" && r.Method == http.MethodGet {
		s.exportArtifact(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl := s.service.Controller()

	switch action {
	case "begin":
		var req struct {
			TesterName  string `json:"testerName"`
			TesterEmail string `json:"testerEmail"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		s.respond(w, ctrl, ctrl.Begin(req.TesterName, req.TesterEmail))

	case "start":
		s.respond(w, ctrl, ctrl.StartTask())

	case "goal":
		var req struct {
			Event string `json:"event"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		// Tolerated no-op on mismatch, per the host contract.
		s.respond(w, ctrl, ctrl.SignalGoal(req.Event))

	case "complete":
		s.respond(w, ctrl, ctrl.Complete())

	case "rating":
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		s.respond(w, ctrl, ctrl.SubmitRating(req.Rating, req.Comment))

	case "skip/request":
		s.respond(w, ctrl, ctrl.RequestSkip())

	case "skip/cancel":
		s.respond(w, ctrl, ctrl.CancelSkip())

	case "skip/confirm":
		s.respond(w, ctrl, ctrl.ConfirmSkip())

	case "skip":
		var req struct {
			Comment string `json:"comment"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		s.respond(w, ctrl, ctrl.SubmitSkip(req.Comment))

	case "hint":
		var req struct {
			Open bool `json:"open"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		ctrl.SetHintOpen(req.Open)
		s.respond(w, ctrl, nil)

	case "recall/start":
		s.respond(w, ctrl, ctrl.StartRecallTimer())

	case "recall/answer":
		var req struct {
			Answer string `json:"answer"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		s.respond(w, ctrl, ctrl.SubmitRecallAnswer(req.Answer))

	case "recall/ack":
		s.respond(w, ctrl, ctrl.AckRecallFeedback())

	case "final":
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		s.respond(w, ctrl, ctrl.SubmitFinal(req.Rating, req.Comment))

	case "clicks":
		s.recordClicks(w, r, ctrl)

	case "reset":
		fresh := s.service.Reset()
		writeJSON(w, http.StatusOK, fresh.Snapshot())

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// clickPayload is what the shim sends; offsets are stamped server-side.
type clickPayload struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	ElementTag string `json:"elementTag"`
	ElementID  string `json:"elementId"`
	Text       string `json:"text"`
}

func (s *Server) recordClicks(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	var clicks []clickPayload
	if !decodeBody(w, r, &clicks) {
		return
	}
	for _, c := range clicks {
		ctrl.RecordClick(c.X, c.Y, c.ElementTag, c.ElementID, c.Text)
	}
	w.WriteHeader(http.StatusAccepted)
}

// exportArtifact serves the terminal payload as a downloadable file.
func (s *Server) exportArtifact(w http.ResponseWriter, r *http.Request) {
	sub := s.service.Controller().Submission()
	if sub == nil {
		http.Error(w, "session not submitted yet", http.StatusNotFound)
		return
	}
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sub.ArtifactName()))
	w.Write(data)
}

// respond maps controller errors to HTTP statuses and returns the fresh
// snapshot on success, so the shim can re-render from one round trip.
func (s *Server) respond(w http.ResponseWriter, ctrl *session.Controller, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrWrongPhase), errors.Is(err, session.ErrNoSkipPending):
			status = http.StatusConflict
		case errors.Is(err, session.ErrSkipDisabled):
			status = http.StatusForbidden
		case errors.Is(err, session.ErrSessionOver):
			status = http.StatusGone
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
