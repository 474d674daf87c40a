package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumina/internal/apperr"
	"lumina/internal/fragment"
	"lumina/internal/orchestrator"
)

type addFragmentRequest struct {
	Content string `json:"content" validate:"notblank,max=10000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed"`
}

type brainstormRequest struct {
	Idea string `json:"idea" validate:"notblank,max=2000"`
}

type viewRequest struct {
	View string `json:"view" validate:"required,oneof=feed planning review brainstorm"`
}

type inputRequest struct {
	Value string `json:"value" validate:"max=10000"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"provider":  s.mgr.GatewayName(),
		"fragments": s.mgr.Fragments().Len(),
	})
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, s.mgr.Snapshot())
}

func (s *Server) putView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.mgr.SetView(orchestrator.View(req.View)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"currentView": req.View})
}

func (s *Server) putInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.mgr.SetInputValue(req.Value)
	respondData(w, http.StatusOK, map[string]string{"inputValue": req.Value})
}

func (s *Server) commitInput(w http.ResponseWriter, r *http.Request) {
	f, err := s.mgr.AddFromInput()
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, f)
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) {
	f, err := s.mgr.SimulateRecording(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, f)
}

// --- Fragments ---

func (s *Server) listFragments(w http.ResponseWriter, _ *http.Request) {
	frags := s.mgr.Fragments().List()
	if frags == nil {
		frags = []fragment.Fragment{}
	}
	respondData(w, http.StatusOK, frags)
}

func (s *Server) addFragment(w http.ResponseWriter, r *http.Request) {
	var req addFragmentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	f, err := s.mgr.AddFragment(req.Content)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, f)
}

func (s *Server) removeFragment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.mgr.RemoveFragment(id) {
		s.respondErr(w, r, apperr.NotFound("remove", "fragment "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, ok := s.mgr.ToggleTodo(id)
	if !ok {
		if _, exists := s.mgr.Fragments().Get(id); exists {
			s.respondErr(w, r, apperr.Validation("toggle", "only fragments and todos can be toggled"))
			return
		}
		s.respondErr(w, r, apperr.NotFound("toggle", "fragment "+id))
		return
	}
	respondData(w, http.StatusOK, f)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	f, err := s.mgr.SetStatus(chi.URLParam(r, "id"), fragment.Status(req.Status))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, f)
}

// --- AI operations ---

func (s *Server) organize(w http.ResponseWriter, r *http.Request) {
	res, err := s.mgr.Organize(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	res, err := s.mgr.Review(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"review": res})
}

func (s *Server) brainstorm(w http.ResponseWriter, r *http.Request) {
	var req brainstormRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	res, err := s.mgr.Brainstorm(r.Context(), req.Idea)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	kind, ok := orchestrator.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		s.respondErr(w, r, apperr.Validation("cancel", "unknown operation kind"))
		return
	}
	s.mgr.Cancel(kind)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearChat(w http.ResponseWriter, _ *http.Request) {
	s.mgr.ClearChat()
	w.WriteHeader(http.StatusNoContent)
}
