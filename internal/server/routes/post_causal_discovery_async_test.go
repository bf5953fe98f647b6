package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/exposome-labs/causeway/backend/internal/queue"
	"github.com/exposome-labs/causeway/backend/internal/server/middleware"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
)

type structValidator struct {
	v *validator.Validate
}

func (s *structValidator) Validate(i any) error {
	return s.v.Struct(i)
}

type fakeEnqueuer struct {
	queueName string
	body      []byte
	err       error
}

func (f *fakeEnqueuer) Enqueue(queueName string, body []byte) error {
	f.queueName = queueName
	f.body = body
	return f.err
}

func asyncRequest(t *testing.T, app *middleware.App, payload string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Validator = &structValidator{v: validator.New()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/causal-discovery/async", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := &middleware.AppContext{Context: e.NewContext(req, rec), App: app}
	if err := PostCausalDiscoveryAsyncHandler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestAsyncSubmitEnqueuesRequest(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	rec := asyncRequest(t, &middleware.App{Queue: enqueuer},
		`{"focusEntities":["PM2.5"],"contextEntities":["CRP"]}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if enqueuer.queueName != queue.DiscoveryQueue {
		t.Errorf("expected queue %q, got %q", queue.DiscoveryQueue, enqueuer.queueName)
	}

	var enqueued discovery.Request
	if err := json.Unmarshal(enqueuer.body, &enqueued); err != nil {
		t.Fatalf("enqueued body is not a request: %v", err)
	}
	if enqueued.RequestID == "" {
		t.Error("expected a generated request id on the enqueued request")
	}
	if len(enqueued.FocusEntities) != 1 || enqueued.FocusEntities[0] != "PM2.5" {
		t.Errorf("unexpected focus entities %v", enqueued.FocusEntities)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "accepted" {
		t.Errorf("expected status accepted, got %q", body["status"])
	}
	if body["requestId"] != enqueued.RequestID {
		t.Errorf("response id %q does not match enqueued id %q", body["requestId"], enqueued.RequestID)
	}
}

func TestAsyncSubmitKeepsCallerRequestID(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	rec := asyncRequest(t, &middleware.App{Queue: enqueuer},
		`{"requestId":"req-42","focusEntities":["PM2.5"]}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["requestId"] != "req-42" {
		t.Errorf("expected caller id to survive, got %q", body["requestId"])
	}
}

func TestAsyncSubmitRejectsInvalidRequest(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	rec := asyncRequest(t, &middleware.App{Queue: enqueuer}, `{"focusEntities":[]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if enqueuer.body != nil {
		t.Error("invalid request must not be enqueued")
	}

	var resp discovery.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != discovery.CodeInvalidRequest {
		t.Errorf("expected INVALID_REQUEST error, got %+v", resp.Error)
	}
}

func TestAsyncSubmitWithoutQueueIsUnavailable(t *testing.T) {
	rec := asyncRequest(t, &middleware.App{}, `{"focusEntities":["PM2.5"]}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a broker, got %d", rec.Code)
	}
}

func TestAsyncSubmitReportsEnqueueFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: errors.New("channel closed")}
	rec := asyncRequest(t, &middleware.App{Queue: enqueuer}, `{"focusEntities":["PM2.5"]}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on enqueue failure, got %d", rec.Code)
	}
}
