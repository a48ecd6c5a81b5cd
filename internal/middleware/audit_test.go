package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/model"
)

// chanRecorder delivers recorded entries to the test goroutine.
type chanRecorder struct{ ch chan model.AuditEntry }

func newChanRecorder() *chanRecorder {
	return &chanRecorder{ch: make(chan model.AuditEntry, 1)}
}

func (r *chanRecorder) Record(_ context.Context, e model.AuditEntry) error {
	r.ch <- e
	return nil
}

func (r *chanRecorder) wait(t *testing.T) model.AuditEntry {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no audit entry recorded")
		return model.AuditEntry{}
	}
}

func auditRequest(t *testing.T, rec *chanRecorder, body string, headers map[string]string, status int, extra ...echo.MiddlewareFunc) model.AuditEntry {
	t.Helper()
	e := echo.New()
	mws := append([]echo.MiddlewareFunc{Audit(rec)}, extra...)
	e.POST("/v1/things", func(c echo.Context) error {
		return c.JSON(status, echo.Map{"success": status < 400})
	}, mws...)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/things", reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return rec.wait(t)
}

func TestAuditOutcomeAndAction(t *testing.T) {
	rec := newChanRecorder()
	entry := auditRequest(t, rec, "", nil, http.StatusOK)
	if entry.Action != "POST /v1/things" {
		t.Fatalf("unexpected action %q", entry.Action)
	}
	if entry.Outcome != model.OutcomeOK || entry.Status != http.StatusOK {
		t.Fatalf("expected OK/200, got %s/%d", entry.Outcome, entry.Status)
	}
	if entry.DurationMS < 0 {
		t.Fatalf("negative duration %f", entry.DurationMS)
	}

	entry = auditRequest(t, rec, "", nil, http.StatusBadRequest)
	if entry.Outcome != model.OutcomeError || entry.Status != http.StatusBadRequest {
		t.Fatalf("expected ERROR/400, got %s/%d", entry.Outcome, entry.Status)
	}
}

func TestAuditActorPriority(t *testing.T) {
	jsonHeaders := map[string]string{echo.HeaderContentType: echo.MIMEApplicationJSON}

	t.Run("header wins", func(t *testing.T) {
		rec := newChanRecorder()
		headers := map[string]string{
			"X-User-ID":            "from-header",
			echo.HeaderContentType: echo.MIMEApplicationJSON,
		}
		entry := auditRequest(t, rec, `{"userId":"from-body"}`, headers, http.StatusOK)
		if entry.Actor != "from-header" {
			t.Fatalf("expected header actor, got %q", entry.Actor)
		}
	})

	t.Run("body next", func(t *testing.T) {
		rec := newChanRecorder()
		entry := auditRequest(t, rec, `{"userId":"from-body"}`, jsonHeaders, http.StatusOK)
		if entry.Actor != "from-body" {
			t.Fatalf("expected body actor, got %q", entry.Actor)
		}
	})

	t.Run("authenticated user next", func(t *testing.T) {
		rec := newChanRecorder()
		u := activeUser(42)
		entry := auditRequest(t, rec, "", nil, http.StatusOK, preload(u))
		if entry.Actor != "42" {
			t.Fatalf("expected authenticated actor, got %q", entry.Actor)
		}
	})

	t.Run("guest fallback", func(t *testing.T) {
		rec := newChanRecorder()
		entry := auditRequest(t, rec, "", nil, http.StatusOK)
		if entry.Actor != anonymousActor {
			t.Fatalf("expected guest, got %q", entry.Actor)
		}
	})
}

func TestAuditBodyPeekPreservesBody(t *testing.T) {
	rec := newChanRecorder()
	e := echo.New()
	var seen string
	e.POST("/echo", func(c echo.Context) error {
		var body struct {
			UserID string `json:"userId"`
		}
		if err := c.Bind(&body); err != nil {
			return err
		}
		seen = body.UserID
		return c.NoContent(http.StatusOK)
	}, Audit(rec))

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"userId":"u-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen != "u-1" {
		t.Fatalf("handler must still see the body, got %q", seen)
	}
	if entry := rec.wait(t); entry.Actor != "u-1" {
		t.Fatalf("expected body actor, got %q", entry.Actor)
	}
}

// A recorder failure must never affect the response.
type failingRecorder struct{ done chan struct{} }

func (r *failingRecorder) Record(context.Context, model.AuditEntry) error {
	close(r.done)
	return context.DeadlineExceeded
}

func TestAuditFailureDoesNotFailRequest(t *testing.T) {
	rec := &failingRecorder{done: make(chan struct{})}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Audit(rec))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 despite recorder failure, got %d", w.Code)
	}
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder was never invoked")
	}
}
