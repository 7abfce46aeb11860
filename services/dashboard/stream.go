package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agentdash/services/dashboard/agentlist"
)

const keepAliveInterval = 15 * time.Second

type rowsEvent struct {
	Loading bool   `json:"loading"`
	Phase   string `json:"phase"`
	HTML    string `json:"html"`
}

type noticeEvent struct {
	Level   agentlist.NoticeLevel `json:"level"`
	Message string                `json:"message"`
}

// handleStream mounts one agent list view for the lifetime of the request and
// pushes its state to the browser as server-sent events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	view := agentlist.New(s.platform, agentlist.Options{
		Interval:  s.interval,
		Location:  s.loc,
		NewTicker: s.newTicker,
		Logger:    s.log,
	})
	if err := view.Mount(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id := s.views.add(view)
	log := s.log.With().Str("view", id).Logger()
	log.Debug().Msg("view mounted")
	defer func() {
		s.views.remove(id)
		view.Unmount()
		log.Debug().Msg("view unmounted")
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "view", id); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	var lastNotice uint64
	push := func() error {
		snap := view.Snapshot()
		html, err := s.engine.Render("agent_rows", snap)
		if err != nil {
			return err
		}
		if err := writeJSONEvent(w, "rows", rowsEvent{Loading: snap.Loading, Phase: snap.Phase.String(), HTML: html}); err != nil {
			return err
		}
		if n := snap.Notice; n != nil && n.Seq > lastNotice {
			lastNotice = n.Seq
			if err := writeJSONEvent(w, "notice", noticeEvent{Level: n.Level, Message: n.Message}); err != nil {
				return err
			}
		}
		flusher.Flush()
		return nil
	}

	if err := push(); err != nil {
		log.Warn().Err(err).Msg("push view state")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-view.Changes():
			if !open {
				return
			}
			if err := push(); err != nil {
				log.Warn().Err(err).Msg("push view state")
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func writeJSONEvent(w http.ResponseWriter, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeEvent(w, name, string(raw))
}
