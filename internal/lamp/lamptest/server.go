// Package lamptest provides an in-memory fake of the backend HTTP API for
// package tests.
package lamptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
)

// Server is a canned backend. Populate the public fields, then point a
// client at URL(). Reads are filtered and ordered the way the real backend
// behaves: descending by timestamp, bounded by _from/to/_limit.
type Server struct {
	mu sync.Mutex

	// Sensor events per participant per origin.
	Sensor map[string]map[string][]lamp.SensorEvent
	// Activity events per participant.
	Activity map[string][]lamp.ActivityEvent
	// Activity definitions per participant.
	Definitions map[string][]lamp.Activity
	// Attachments by "<target>/<key>".
	Attachments map[string]json.RawMessage
	// Parent sets by id. Ids absent here 404.
	Parents map[string]lamp.Parentage
	// Studies per researcher, participants per study.
	Studies      map[string][]lamp.Study
	Participants map[string][]lamp.Participant

	// SensorCalls counts sensor_event list requests, for cache assertions.
	SensorCalls int

	httpServer *httptest.Server
}

// New starts the fake server.
func New() *Server {
	s := &Server{
		Sensor:       make(map[string]map[string][]lamp.SensorEvent),
		Activity:     make(map[string][]lamp.ActivityEvent),
		Definitions:  make(map[string][]lamp.Activity),
		Attachments:  make(map[string]json.RawMessage),
		Parents:      make(map[string]lamp.Parentage),
		Studies:      make(map[string][]lamp.Study),
		Participants: make(map[string][]lamp.Participant),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// URL is the base address of the fake.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Client builds a real client against the fake.
func (s *Server) Client() *lamp.Client {
	return lamp.NewClient(s.httpServer.URL, "test", "test", zap.NewNop())
}

// AddSensor appends sensor events for a participant and origin.
func (s *Server) AddSensor(participant, origin string, events ...lamp.SensorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Sensor[participant] == nil {
		s.Sensor[participant] = make(map[string][]lamp.SensorEvent)
	}
	s.Sensor[participant][origin] = append(s.Sensor[participant][origin], events...)
}

// SetAttachment stores an attachment value.
func (s *Server) SetAttachment(target, key string, value interface{}) {
	raw, _ := json.Marshal(value)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attachments[target+"/"+key] = raw
}

// GetAttachment decodes an attachment into out, reporting presence.
func (s *Server) GetAttachment(target, key string, out interface{}) bool {
	s.mu.Lock()
	raw, ok := s.Attachments[target+"/"+key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	_ = json.Unmarshal(raw, out)
	return true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "participant" && parts[2] == "sensor_event":
		s.SensorCalls++
		s.serveSensorEvents(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "participant" && parts[2] == "activity_event":
		s.serveActivityEvents(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "participant" && parts[2] == "activity":
		writeData(w, s.Definitions[parts[1]])
	case len(parts) == 4 && parts[0] == "type" && parts[2] == "attachment":
		s.serveAttachment(w, r, parts[1], parts[3])
	case len(parts) == 3 && parts[0] == "type" && parts[2] == "attachment":
		s.serveAttachmentList(w, parts[1])
	case len(parts) == 3 && parts[0] == "type" && parts[2] == "parent":
		s.serveParent(w, parts[1])
	case len(parts) == 3 && parts[0] == "researcher" && parts[2] == "study":
		writeData(w, s.Studies[parts[1]])
	case len(parts) == 3 && parts[0] == "study" && parts[2] == "participant":
		writeData(w, s.Participants[parts[1]])
	default:
		writeNotFound(w)
	}
}

func (s *Server) serveSensorEvents(w http.ResponseWriter, r *http.Request, participant string) {
	origin := r.URL.Query().Get("origin")
	from := queryInt64(r, "_from", 0)
	to := queryInt64(r, "to", int64(1)<<62)
	limit := int(queryInt64(r, "_limit", 1000))

	var events []lamp.SensorEvent
	if origin != "" {
		events = s.Sensor[participant][origin]
	} else {
		for _, list := range s.Sensor[participant] {
			events = append(events, list...)
		}
	}

	var out []lamp.SensorEvent
	for _, ev := range events {
		if ev.Timestamp >= from && ev.Timestamp <= to {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	writeData(w, out)
}

func (s *Server) serveActivityEvents(w http.ResponseWriter, r *http.Request, participant string) {
	from := queryInt64(r, "_from", 0)
	to := queryInt64(r, "to", int64(1)<<62)
	limit := int(queryInt64(r, "_limit", 1000))

	var out []lamp.ActivityEvent
	for _, ev := range s.Activity[participant] {
		if ev.Timestamp >= from && ev.Timestamp <= to {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	writeData(w, out)
}

func (s *Server) serveAttachment(w http.ResponseWriter, r *http.Request, target, key string) {
	mapKey := target + "/" + key
	if r.Method == http.MethodPut {
		body := json.RawMessage{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.Attachments[mapKey] = body
		writeData(w, nil)
		return
	}

	raw, ok := s.Attachments[mapKey]
	if !ok {
		writeNotFound(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": raw})
}

func (s *Server) serveAttachmentList(w http.ResponseWriter, target string) {
	prefix := target + "/"
	keys := []string{}
	for k := range s.Attachments {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	writeData(w, keys)
}

func (s *Server) serveParent(w http.ResponseWriter, id string) {
	parents, ok := s.Parents[id]
	if !ok {
		writeNotFound(w)
		return
	}
	writeData(w, parents)
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func writeData(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": v})
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "404.object-not-found"})
}
