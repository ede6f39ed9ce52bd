package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/realtime"
	"github.com/rickgao/candidate-tracker/internal/storage"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 1 << 20

type healthResponse struct {
	Status   string          `json:"status"`
	Realtime realtime.Status `json:"realtime"`
	Uptime   string          `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rt := s.ctl.Status().Status

	resp := healthResponse{
		Status:   "healthy",
		Realtime: rt,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	}
	if rt != realtime.StatusConnected {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.Filter{Search: strings.TrimSpace(q.Get("search"))}

	if raw := q.Get("status"); raw != "" && !strings.EqualFold(raw, "all") {
		st, err := model.ParseStatus(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		f.Status = st
	}

	writeJSON(w, http.StatusOK, s.ctl.Candidates(f))
}

func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var in model.NewCandidate
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.ctl.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := model.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	updated, err := s.ctl.UpdateStatus(r.Context(), r.PathValue("id"), st)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, storage.ErrTooLarge)
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: read file field: %v", errBadRequest, err))
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		s.writeError(w, r, fmt.Errorf("%w: %d bytes, limit %d", storage.ErrTooLarge, header.Size, s.maxUpload))
		return
	}

	res, err := s.ctl.UploadResume(r.Context(), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Stats())
}

func (s *Server) handleRealtimeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	s.ctl.Reconnect(r.Context())
	writeJSON(w, http.StatusAccepted, s.ctl.Status())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f, err := s.files.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "resume not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}
