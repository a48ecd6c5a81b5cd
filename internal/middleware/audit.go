package middleware

import (
    "bytes"
    "context"
    "encoding/json"
    "io"
    "log"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/zentro/zentro-api/internal/audit"
    "github.com/zentro/zentro-api/internal/model"
)

// anonymousActor marks entries with no resolvable actor.
const anonymousActor = "guest"

// maxActorPeekBytes bounds how much of a request body the audit
// middleware will buffer while looking for a userId field.
const maxActorPeekBytes = 8 << 10

// Audit wraps request handling with the activity trail. One entry is
// appended per finished request: method and path, best-effort actor,
// OK/ERROR outcome derived from the status, and duration. Recording is
// fire and forget on a separate goroutine; a failed or panicking append
// never affects the response.
//
// Actor resolution is a fixed priority list, evaluated once per request:
// the X-User-ID header, then a userId field in a JSON body, then the
// authenticated user, defaulting to "guest".
func Audit(rec audit.Recorder) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            bodyActor := peekBodyActor(c)

            err := next(c)
            if err != nil {
                // Let the error handler commit the response so the
                // recorded status is the one the client saw.
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            outcome := model.OutcomeOK
            if status >= 400 {
                outcome = model.OutcomeError
            }

            entry := model.AuditEntry{
                At:         start.UTC(),
                Actor:      resolveActor(c, bodyActor),
                Action:     req.Method + " " + req.URL.Path,
                Outcome:    outcome,
                Status:     status,
                DurationMS: float64(time.Since(start)) / float64(time.Millisecond),
                IP:         c.RealIP(),
                UserAgent:  req.UserAgent(),
                Params:     pathParams(c),
                Query:      req.URL.RawQuery,
            }

            go func() {
                defer func() {
                    if r := recover(); r != nil {
                        log.Printf("audit: record panicked: %v", r)
                    }
                }()
                ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
                defer cancel()
                if err := rec.Record(ctx, entry); err != nil {
                    log.Printf("audit: record failed: %v", err)
                }
            }()
            return nil
        }
    }
}

// resolveActor applies the documented priority: header, body field,
// authenticated user, anonymous marker.
func resolveActor(c echo.Context, bodyActor string) string {
    if v := c.Request().Header.Get("X-User-ID"); v != "" {
        return v
    }
    if bodyActor != "" {
        return bodyActor
    }
    if id, ok := c.Get(CtxUserID).(uint64); ok {
        return strconv.FormatUint(id, 10)
    }
    return anonymousActor
}

// peekBodyActor reads up to maxActorPeekBytes of a JSON request body
// looking for a userId field, then restores the body for the handler.
func peekBodyActor(c echo.Context) string {
    req := c.Request()
    if req.Body == nil {
        return ""
    }
    if ct := req.Header.Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
        return ""
    }
    buf, err := io.ReadAll(io.LimitReader(req.Body, maxActorPeekBytes))
    if err != nil {
        req.Body = io.NopCloser(bytes.NewReader(buf))
        return ""
    }
    req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), req.Body))

    var probe struct {
        UserID json.RawMessage `json:"userId"`
    }
    if err := json.Unmarshal(buf, &probe); err != nil || len(probe.UserID) == 0 {
        return ""
    }
    return strings.Trim(string(probe.UserID), `"`)
}

func pathParams(c echo.Context) map[string]string {
    names := c.ParamNames()
    if len(names) == 0 {
        return nil
    }
    params := make(map[string]string, len(names))
    for _, n := range names {
        params[n] = c.Param(n)
    }
    return params
}
