package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rickgao/candidate-tracker/internal/events"
)

// handleEvents streams hub events until the client goes away or the hub
// closes. The realtime status is sent first so clients can render the
// indicator immediately.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New("streaming unsupported"))
		return
	}

	sub := s.events.Subscribe()
	defer sub.Close()

	ctx := r.Context()
	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, 0, "status", s.ctl.Status()); err != nil {
		return
	}
	flusher.Flush()

	for {
		ev, ok := sub.Receive()
		if !ok {
			return
		}
		for _, e := range append([]events.Event{ev}, sub.Drain()...) {
			if err := writeSSE(w, e.ID, string(e.Kind), e); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, id uint64, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if id > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
