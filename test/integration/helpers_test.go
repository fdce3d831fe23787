package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// testServer holds the base URL of a running `intcalc serve` instance.
var testServer string

func init() {
	testServer = os.Getenv("INTCALC_URL")
	if testServer == "" {
		testServer = "http://localhost:8787"
	}
	// Ensure the URL has a scheme.
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}
}

var client = &http.Client{Timeout: 5 * time.Second}

// requireServer skips the test when no server answers the health check.
func requireServer(t *testing.T) {
	t.Helper()
	resp, err := client.Get(strings.TrimRight(testServer, "/") + "/healthz")
	if err != nil {
		t.Skipf("intcalc server not reachable at %s: %v", testServer, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("intcalc server at %s unhealthy: %d", testServer, resp.StatusCode)
	}
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

type token struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type diagnostic struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type evaluation struct {
	ID          string       `json:"id"`
	Expression  string       `json:"expression"`
	State       string       `json:"state"`
	Value       *int64       `json:"value"`
	Tokens      []token      `json:"tokens"`
	Tree        []string     `json:"tree"`
	Diagnostics []diagnostic `json:"diagnostics"`
}

type apiError struct {
	Error struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Status  string   `json:"status"`
		Tags    []string `json:"tags"`
	} `json:"error"`
}

// postJSON sends body to path and returns the status code and raw response.
func postJSON(t *testing.T, path string, body any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := client.Post(apiURL(path), "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

// evaluate posts expression and decodes a successful evaluation.
func evaluate(t *testing.T, expression string) evaluation {
	t.Helper()
	code, body := postJSON(t, "evaluations?tree=true", map[string]string{"expression": expression})
	if code != http.StatusCreated {
		t.Fatalf("evaluate %q: expected 201, got %d: %s", expression, code, body)
	}
	var ev evaluation
	if err := json.Unmarshal(body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

// evaluateError posts expression and decodes the error envelope.
func evaluateError(t *testing.T, expression string) (int, apiError) {
	t.Helper()
	code, body := postJSON(t, "evaluations", map[string]string{"expression": expression})
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode: %v: %s", err, body)
	}
	return code, e
}
