package httpapi

import (
	"fmt"
	"net/http"

	"github.com/hollowmap/docdb/internal/docdb"
)

// handleEvents streams every committed change as
// "event: update\ndata: {...}\n\n", per spec.md §6. One hub subscriber
// is registered per connection and torn down when the client
// disconnects, grounded on syntrixbase/syntrix's streaming-connection
// shape adapted from a WebSocket hub to plain SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	ch, cancel := s.engine.Hub().SubscribeAll()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev docdb.ChangeEvent) {
	fmt.Fprintf(w, "event: update\ndata: {\"key\":%s}\n\n", jsonQuote(ev.Key))
}

func jsonQuote(s string) string {
	out := []byte{'"'}
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, string(r)...)
		}
	}
	out = append(out, '"')
	return string(out)
}
