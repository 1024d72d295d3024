package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}

	// Answer produces the reply of the stub directory for one action. A
	// string body is written as is, anything else is encoded as JSON.
	Answer func(req map[string]interface{}) (status int, body interface{})

	// DirectoryStub is an httptest server speaking the directory protocol.
	DirectoryStub struct {
		URL string

		mu       sync.Mutex
		calls    map[string]int
		requests []map[string]interface{}
		answers  map[string]Answer
	}
)

// AcquireDirectoryStub starts a stub directory. Actions without an answer
// reply {"success":false}.
func AcquireDirectoryStub(t TestLog, answers map[string]Answer) (*DirectoryStub, func()) {
	stub := &DirectoryStub{
		calls:   map[string]int{},
		answers: answers,
	}
	server := httptest.NewServer(http.HandlerFunc(stub.serve))
	stub.URL = server.URL
	return stub, server.Close
}

func (s *DirectoryStub) serve(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	action, _ := req["action"].(string)
	s.mu.Lock()
	s.calls[action]++
	s.requests = append(s.requests, req)
	answer := s.answers[action]
	s.mu.Unlock()

	status, body := http.StatusOK, interface{}(map[string]interface{}{"success": false, "message": "acción desconocida"})
	if answer != nil {
		status, body = answer(req)
	}
	if raw, ok := body.(string); ok {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		w.Write([]byte(raw))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Calls returns how many times action was received.
func (s *DirectoryStub) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// Total counts every request, whatever the action.
func (s *DirectoryStub) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the decoded payloads for action in arrival order.
func (s *DirectoryStub) Requests(action string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]interface{}
	for _, r := range s.requests {
		if r["action"] == action {
			out = append(out, r)
		}
	}
	return out
}

// JSON is a shorthand for a 200 answer with a fixed body.
func JSON(body interface{}) Answer {
	return func(map[string]interface{}) (int, interface{}) {
		return http.StatusOK, body
	}
}
