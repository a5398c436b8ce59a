package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

const testAPIToken = "test-api-token"

func newTestServer(env *testEnv) *HTTPServer {
	return NewHTTPServer(env.service, testAPIToken, "*")
}

func doRequest(t *testing.T, server *HTTPServer, method, path, body string, authorize bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorize {
		req.Header.Set("Authorization", "Bearer "+testAPIToken)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func parseBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestRootGreeting(t *testing.T) {
	server := newTestServer(newTestEnv())
	rr := doRequest(t, server, http.MethodGet, "/", "", false)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != "Hello, Manifesto Notify Bot!" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(newTestEnv())
	rr := doRequest(t, server, http.MethodGet, "/health", "", false)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := parseBody(t, rr)
	if payload["status"] != "ok" {
		t.Errorf("status field = %v", payload["status"])
	}
	ts, _ := payload["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", ts, err)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	server := newTestServer(newTestEnv())

	rr := doRequest(t, server, http.MethodGet, "/api/manifestos", "", false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/manifestos", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr2 := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr2, req)
	if rr2.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", rr2.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/manifestos", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr3 := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr3, req)
	if rr3.Code != http.StatusUnauthorized {
		t.Fatalf("malformed header: status = %d", rr3.Code)
	}
}

func TestAPIUnconfiguredServerToken(t *testing.T) {
	server := NewHTTPServer(newTestEnv().service, "", "*")
	rr := doRequest(t, server, http.MethodGet, "/api/manifestos", "", true)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 when the server token is unset", rr.Code)
	}
}

func TestNotifyEndpoint(t *testing.T) {
	env := newTestEnv()
	server := newTestServer(env)

	rr := doRequest(t, server, http.MethodPost, "/api/manifestos/notify",
		`{"githubPrUrl":"`+testPRURL+`"}`, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	payload := parseBody(t, rr)
	if payload["manifestoId"] == "" || payload["manifestoId"] == nil {
		t.Error("missing manifestoId")
	}
	notifications, _ := payload["notifications"].(map[string]any)
	x, _ := notifications["x"].(map[string]any)
	if x["success"] != true {
		t.Errorf("notifications = %v", notifications)
	}
	if url, _ := x["url"].(string); !strings.HasPrefix(url, "https://x.com/") {
		t.Errorf("url = %q", url)
	}
}

func TestNotifyEndpointExcluded(t *testing.T) {
	env := newTestEnv()
	env.llm.summary = "要約対象外"
	server := newTestServer(env)

	rr := doRequest(t, server, http.MethodPost, "/api/manifestos/notify",
		`{"githubPrUrl":"`+testPRURL+`"}`, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["message"] != "This PR is not suitable for notification." {
		t.Errorf("message = %v", payload["message"])
	}
	if _, ok := payload["manifestoId"]; ok {
		t.Error("skip response must not carry a manifestoId")
	}
}

func TestNotifyEndpointValidation(t *testing.T) {
	server := newTestServer(newTestEnv())

	rr := doRequest(t, server, http.MethodPost, "/api/manifestos/notify", `{"githubPrUrl":`, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/manifestos/notify", `{}`, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing URL: status = %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/manifestos/notify",
		`{"githubPrUrl":"https://github.com/team-mirai/policy/issues/42"}`, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-PR URL: status = %d", rr.Code)
	}
}

func TestNotifyEndpointUpstreamFailure(t *testing.T) {
	env := newTestEnv()
	env.fetcher.err = errTest
	server := newTestServer(env)

	rr := doRequest(t, server, http.MethodPost, "/api/manifestos/notify",
		`{"githubPrUrl":"`+testPRURL+`"}`, true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := parseBody(t, rr)
	if payload["error"] != "Internal server error" {
		t.Errorf("error = %v, internal detail must not leak", payload["error"])
	}
}

func TestCreateManifestoEndpoint(t *testing.T) {
	env := newTestEnv()
	server := newTestServer(env)

	rr := doRequest(t, server, http.MethodPost, "/api/manifestos",
		`{"title":"新しい政策","content":"本文です。","githubPrUrl":"`+testPRURL+`"}`, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("missing id")
	}
	if _, ok := env.manifestos.items[id]; !ok {
		t.Error("manifesto not persisted")
	}
}

func TestCreateManifestoEndpointValidation(t *testing.T) {
	server := newTestServer(newTestEnv())

	for body, wantMessage := range map[string]string{
		`{"content":"c","githubPrUrl":"u"}`: "Title is required",
		`{"title":"t","githubPrUrl":"u"}`:   "Content is required",
		`{"title":"t","content":"c"}`:       "GitHub PR URL is required",
	} {
		rr := doRequest(t, server, http.MethodPost, "/api/manifestos", body, true)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, rr.Code)
			continue
		}
		if payload := parseBody(t, rr); payload["error"] != wantMessage {
			t.Errorf("body %s: error = %v, want %q", body, payload["error"], wantMessage)
		}
	}
}

func TestListManifestosEndpoint(t *testing.T) {
	env := newTestEnv()
	env.manifestos.items["m-1"] = store.Manifesto{ID: "m-1", Title: "政策"}
	server := newTestServer(env)

	rr := doRequest(t, server, http.MethodGet, "/api/manifestos", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := parseBody(t, rr)
	items, _ := payload["manifestos"].([]any)
	if len(items) != 1 {
		t.Errorf("manifestos = %v", payload["manifestos"])
	}
}

func TestListHistoriesEndpoint(t *testing.T) {
	env := newTestEnv()
	env.histories.items = []store.NotificationHistory{
		{ID: "h-1", ManifestoID: "m-1", Platform: "x"},
		{ID: "h-2", ManifestoID: "m-2", Platform: "x"},
	}
	server := newTestServer(env)

	rr := doRequest(t, server, http.MethodGet, "/api/manifestos/notify/histories?manifestoId=m-1", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := parseBody(t, rr)
	items, _ := payload["histories"].([]any)
	if len(items) != 1 {
		t.Errorf("histories = %v", payload["histories"])
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(newTestEnv())
	rr := doRequest(t, server, http.MethodGet, "/api/nope", "", true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}
