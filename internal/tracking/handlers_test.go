package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2003abishek/safetracker/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

type fakeDispatcher struct {
	sent   int
	result notify.Result
}

func (f *fakeDispatcher) Send(_ context.Context, _, sessionID, _ string) notify.Result {
	f.sent++
	result := f.result
	if result.Link == "" {
		result.Link = notify.ShareLink("http://localhost:8080", sessionID)
	}
	return result
}

func passthrough(c *fiber.Ctx) error {
	c.Locals("user_id", "user-1")
	return c.Next()
}

func newApp(svc *Service, dispatcher notify.Dispatcher) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), svc, dispatcher, "http://localhost:8080", passthrough)
	RegisterShareRoutes(app.Group("/share"), svc, true)
	return app
}

func TestCreateSessionDispatchFailureStillSucceeds(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO tracking_sessions`).
		WithArgs(pgxmock.AnyArg(), "user-1", "A", "B", "hi", StatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dispatcher := &fakeDispatcher{result: notify.Result{Err: "provider down"}}
	app := newApp(NewService(mock, nil), dispatcher)

	body, _ := json.Marshal(Session{SenderLabel: "A", RecipientLabel: "B", Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v %d", err, resp.StatusCode)
	}
	if dispatcher.sent != 1 {
		t.Fatalf("expected dispatch attempt")
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Dispatch == nil || created.Dispatch.Delivered {
		t.Fatalf("expected undelivered dispatch outcome")
	}
	if !strings.Contains(created.Link, "tracking_id="+created.Session.ID) {
		t.Fatalf("expected fallback link with tracking_id, got %s", created.Link)
	}
}

func TestCreateSessionDelivered(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT INTO tracking_sessions`).
		WithArgs(pgxmock.AnyArg(), "user-1", "A", "B", "", StatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dispatcher := &fakeDispatcher{result: notify.Result{Delivered: true, Reference: "SM1"}}
	app := newApp(NewService(mock, nil), dispatcher)

	body, _ := json.Marshal(Session{SenderLabel: "A", RecipientLabel: "B"})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v", err)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Dispatch == nil || !created.Dispatch.Delivered || created.Dispatch.Reference != "SM1" {
		t.Fatalf("expected delivered dispatch outcome")
	}
}

func TestCreateSessionMissingRecipient(t *testing.T) {
	app := newApp(NewService(nil, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}
}

func TestCreateSessionParseError(t *testing.T) {
	app := newApp(NewService(nil, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestShareResolvesTrackingIDQueryParam(t *testing.T) {
	mock := newMock(t)

	now := time.Now()
	stored := Session{ID: "session-1", SenderLabel: "A", RecipientLabel: "B", Status: StatusPending, CreatedAt: now, ExpiresAt: now.Add(SessionTTL)}
	mock.ExpectQuery(`SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at`).
		WithArgs("session-1").
		WillReturnRows(sessionRow(stored))

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/share?tracking_id=session-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("share status: %v", err)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.ID != "session-1" {
		t.Fatalf("unexpected session id")
	}
}

func TestShareUnknownSession(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/share/missing", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}

func TestShareAppendLocation(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT status FROM tracking_sessions`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusPending))
	mock.ExpectQuery(`INSERT INTO location_updates`).
		WithArgs("session-1", 40.7128, -74.0060, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`UPDATE tracking_sessions SET status`).
		WithArgs("session-1", StatusActive, StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	app := newApp(NewService(mock, nil), nil)

	body, _ := json.Marshal(LocationUpdate{Latitude: 40.7128, Longitude: -74.0060})
	req := httptest.NewRequest(http.MethodPost, "/share/session-1/locations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("append status: %v", err)
	}
}

func TestShareAppendInvalidCoordinates(t *testing.T) {
	app := newApp(NewService(nil, nil), nil)

	body, _ := json.Marshal(LocationUpdate{Latitude: 123, Longitude: 0})
	req := httptest.NewRequest(http.MethodPost, "/share/session-1/locations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestShareDemoLocation(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT status FROM tracking_sessions`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusActive))
	mock.ExpectQuery(`INSERT INTO location_updates`).
		WithArgs("session-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/share/session-1/demo", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("demo status: %v", err)
	}
}

func TestDemoRouteDisabled(t *testing.T) {
	app := fiber.New()
	RegisterShareRoutes(app.Group("/share"), NewService(nil, nil), false)

	req := httptest.NewRequest(http.MethodPost, "/share/session-1/demo", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode == http.StatusCreated {
		t.Fatalf("expected demo route to be absent")
	}
}

func TestListSessionsHandler(t *testing.T) {
	mock := newMock(t)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "created_by", "sender_label", "recipient_label", "message", "status", "created_at", "expires_at"}).
		AddRow("s1", "user-1", "A", "B", "", StatusPending, now, now.Add(SessionTTL))
	mock.ExpectQuery(`SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at`).
		WithArgs("user-1").
		WillReturnRows(rows)

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
}

func TestSummaryHandler(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT id, session_id, latitude, longitude, accuracy, recorded_at`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "latitude", "longitude", "accuracy", "recorded_at"}))

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/summary", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status: %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	mock := newMock(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stored := Session{ID: "session-1", SenderLabel: "A", RecipientLabel: "B", Status: StatusActive, CreatedAt: now, ExpiresAt: now.Add(SessionTTL)}
	mock.ExpectQuery(`SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at`).
		WithArgs("session-1").
		WillReturnRows(sessionRow(stored))

	accuracy := 25.0
	rows := pgxmock.NewRows([]string{"id", "session_id", "latitude", "longitude", "accuracy", "recorded_at"}).
		AddRow(int64(1), "session-1", 40.7128, -74.0060, &accuracy, now).
		AddRow(int64(2), "session-1", 51.5074, -0.1278, nil, now.Add(time.Minute))
	mock.ExpectQuery(`SELECT id, session_id, latitude, longitude, accuracy, recorded_at`).
		WithArgs("session-1").
		WillReturnRows(rows)

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/export", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("export status: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "locations_session-") {
		t.Fatalf("unexpected content disposition: %s", cd)
	}

	body, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,latitude,longitude,accuracy" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "40.7128") || !strings.Contains(lines[1], "25") {
		t.Fatalf("unexpected first row: %s", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",") {
		t.Fatalf("expected empty accuracy cell in second row: %s", lines[2])
	}
}

func TestExportUnknownSession(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/export", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}

func TestGetSessionHandlerError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT id, created_by, sender_label, recipient_label, message, status, created_at, expires_at`).
		WithArgs("session-1").
		WillReturnError(errStore)

	app := newApp(NewService(mock, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/session-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected internal error")
	}
}
