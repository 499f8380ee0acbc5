package httpadapter

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDEchoedWhenProvided(t *testing.T) {
	handler := newRouterForTest(&chatServiceFake{}, &ingestorFake{}, &readerFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("X-Request-Id"); got != "caller-supplied-id" {
		t.Fatalf("expected inbound request id echoed, got %q", got)
	}
}

func TestRequestIDMintedWhenAbsent(t *testing.T) {
	handler := newRouterForTest(&chatServiceFake{}, &ingestorFake{}, &readerFake{}, nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated request id on the response")
	}
}

func TestAccessLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := NewRouter("api-test", &chatServiceFake{}, &ingestorFake{}, &readerFake{}, nil, nil, logger).Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", recorder.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("bad chat payload status = %d", recorder.Code)
	}

	logged := buf.String()
	if !strings.Contains(logged, `"level":"INFO"`) {
		t.Fatalf("expected INFO line for successful request, got %s", logged)
	}
	if !strings.Contains(logged, `"level":"WARN"`) {
		t.Fatalf("expected WARN line for client error, got %s", logged)
	}
	if !strings.Contains(logged, `"request_id"`) {
		t.Fatalf("expected request_id attribute in access log, got %s", logged)
	}
}
