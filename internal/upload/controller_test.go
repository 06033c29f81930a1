package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"statementlens/internal/models"
)

// fakeView records every update the controller makes
type fakeView struct {
	mu             sync.Mutex
	fileName       string
	busy           bool
	everBusy       bool
	triggerEnabled bool
	errorMsg       string
	resultsVisible bool
	calls          int
}

func newFakeView() *fakeView {
	return &fakeView{triggerEnabled: true}
}

func (v *fakeView) record(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	fn()
}

func (v *fakeView) SetFileName(name string) { v.record(func() { v.fileName = name }) }
func (v *fakeView) SetBusy(busy bool) {
	v.record(func() {
		v.busy = busy
		v.everBusy = v.everBusy || busy
	})
}
func (v *fakeView) SetTriggerEnabled(enabled bool) { v.record(func() { v.triggerEnabled = enabled }) }
func (v *fakeView) ShowError(msg string) { v.record(func() { v.errorMsg = msg }) }
func (v *fakeView) ClearError() { v.record(func() { v.errorMsg = "" }) }
func (v *fakeView) SetResultsVisible(visible bool) { v.record(func() { v.resultsVisible = visible }) }

func (v *fakeView) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type fakeRenderer struct {
	payloads []*models.AnalysisPayload
	err      error
}

func (r *fakeRenderer) Display(_ context.Context, p *models.AnalysisPayload) error {
	r.payloads = append(r.payloads, p)
	return r.err
}

func csvFile(body string) *File {
	return &File{Name: "extrato.csv", Type: TypeCSV, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func newTestController(endpoint string) (*Controller, *fakeView, *fakeRenderer) {
	view := newFakeView()
	renderer := &fakeRenderer{}
	c := New(Options{Endpoint: endpoint, View: view, Renderer: renderer})
	return c, view, renderer
}

// assertFailedView checks the view state common to every failure
func assertFailedView(t *testing.T, view *fakeView, msg string) {
	t.Helper()
	if view.errorMsg != msg {
		t.Errorf("Error region = %q, want %q", view.errorMsg, msg)
	}
	if view.resultsVisible {
		t.Error("Results should be hidden after a failure")
	}
	if view.busy {
		t.Error("Busy indicator should be cleared")
	}
	if !view.triggerEnabled {
		t.Error("Trigger should be re-enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		file *File
		want Kind
	}{
		{"missing", nil, MissingFile},
		{"csv", &File{Type: TypeCSV, Size: 10}, 0},
		{"xlsx", &File{Type: TypeXLSX, Size: 10}, 0},
		{"csv with charset", &File{Type: "text/csv; charset=utf-8", Size: 10}, 0},
		{"exactly max size", &File{Type: TypeCSV, Size: MaxFileSize}, 0},
		{"pdf", &File{Type: "application/pdf", Size: 10}, InvalidType},
		{"empty type", &File{Type: "", Size: 10}, InvalidType},
		{"legacy xls", &File{Type: "application/vnd.ms-excel", Size: 10}, InvalidType},
		{"csv too large", &File{Type: TypeCSV, Size: MaxFileSize + 1}, TooLarge},
		{"png too large", &File{Type: "image/png", Size: 17 << 20}, TooLarge},
		{"untyped too large", &File{Size: 20 << 20}, TooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.want == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !IsKind(err, tt.want) {
				t.Errorf("Validate() = %v, want kind %s", err, tt.want)
			}
		})
	}
}

func TestSelectFile(t *testing.T) {
	c, view, _ := newTestController("http://unused")

	c.SelectFile(csvFile("x"))
	if view.fileName != "extrato.csv" {
		t.Errorf("fileName = %q, want extrato.csv", view.fileName)
	}

	c.SelectFile(nil)
	if view.fileName != ChooseFileLabel {
		t.Errorf("fileName = %q, want %q", view.fileName, ChooseFileLabel)
	}
}

func TestSubmitSuccess(t *testing.T) {
	const content = "Data,Valor\n01/03/2024,-10.00\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		file, header, err := r.FormFile(FormField)
		if err != nil {
			t.Errorf("Missing %q part: %v", FormField, err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != content {
			t.Errorf("Part body = %q, want %q", data, content)
		}
		if header.Filename != "extrato.csv" {
			t.Errorf("Filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != TypeCSV {
			t.Errorf("Part Content-Type = %q, want %q", ct, TypeCSV)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_spent":10,"total_received":0,"net_balance":-10,"categories":{"food":10},"insights":[],"recommendations":[]}`)
	}))
	defer srv.Close()

	c, view, renderer := newTestController(srv.URL)
	view.errorMsg = "stale error"

	payload, err := c.Submit(context.Background(), csvFile(content))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if payload.NetBalance != -10 || len(payload.Categories) != 1 {
		t.Errorf("Unexpected payload %+v", payload)
	}
	if len(renderer.payloads) != 1 || renderer.payloads[0] != payload {
		t.Error("Renderer should receive the decoded payload once")
	}
	if !view.resultsVisible {
		t.Error("Results should be visible after success")
	}
	if view.errorMsg != "" {
		t.Errorf("Error region should be cleared, got %q", view.errorMsg)
	}
	if !view.everBusy || view.busy || !view.triggerEnabled {
		t.Errorf("Busy lifecycle wrong: everBusy=%v busy=%v trigger=%v", view.everBusy, view.busy, view.triggerEnabled)
	}
	if c.State() != Idle {
		t.Errorf("State = %s, want idle", c.State())
	}
}

func TestSubmitSendsExtraHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `{"total_spent":0,"total_received":0,"net_balance":0,"categories":{},"insights":[],"recommendations":[]}`)
	}))
	defer srv.Close()

	header := http.Header{"X-Caller": {"report"}}
	c := New(Options{
		Endpoint: srv.URL,
		View:     newFakeView(),
		Renderer: &fakeRenderer{},
		Header:   header,
	})
	header.Set("X-Caller", "changed")

	if _, err := c.Submit(context.Background(), csvFile("Data,Valor\n")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if v := got.Get("X-Caller"); v != "report" {
		t.Errorf("X-Caller = %q, want %q", v, "report")
	}
	if v := got.Get("Accept"); v != "application/json" {
		t.Errorf("Accept = %q, want application/json", v)
	}
}

func TestSubmitInvalidTypeMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c, view, renderer := newTestController(srv.URL)
	file := &File{Name: "photo.png", Type: "image/png", Size: 100, Body: strings.NewReader("x")}

	_, err := c.Submit(context.Background(), file)
	if !IsKind(err, InvalidType) {
		t.Fatalf("Expected InvalidType, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("Endpoint was called %d times", hits.Load())
	}
	if view.everBusy {
		t.Error("Busy indicator should never show for a rejected file")
	}
	if len(renderer.payloads) != 0 {
		t.Error("Renderer should not run")
	}
	assertFailedView(t, view, MsgInvalidType)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{
			name:    "internal server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":"An unexpected error occurred: boom"}`,
			kind:    ServerError,
			message: MsgGeneric,
		},
		{
			name:    "client error with message",
			status:  http.StatusRequestEntityTooLarge,
			body:    `{"error":"File is too large (max 16MB)"}`,
			kind:    ServerError,
			message: "File is too large (max 16MB)",
		},
		{
			name:    "client error without json",
			status:  http.StatusBadRequest,
			body:    "bad request",
			kind:    ServerError,
			message: MsgGeneric,
		},
		{
			name:    "error field on success",
			status:  http.StatusOK,
			body:    `{"error":"no transactions found"}`,
			kind:    SemanticError,
			message: "no transactions found",
		},
		{
			name:    "html on success",
			status:  http.StatusOK,
			body:    "<html>maintenance</html>",
			kind:    ServerError,
			message: MsgGeneric,
		},
		{
			name:    "json array on success",
			status:  http.StatusOK,
			body:    `[1,2,3]`,
			kind:    ServerError,
			message: MsgGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, view, renderer := newTestController(srv.URL)
			_, err := c.Submit(context.Background(), csvFile("a,b\n"))

			if !IsKind(err, tt.kind) {
				t.Fatalf("Expected %s, got %v", tt.kind, err)
			}
			var f *Failure
			if errors.As(err, &f) && f.Status != tt.status {
				t.Errorf("Status = %d, want %d", f.Status, tt.status)
			}
			if len(renderer.payloads) != 0 {
				t.Error("Renderer should not run on failure")
			}
			assertFailedView(t, view, tt.message)
			if c.State() != Idle {
				t.Errorf("State = %s, want idle", c.State())
			}
		})
	}
}

func TestSubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, view, _ := newTestController(endpoint)
	_, err := c.Submit(context.Background(), csvFile("a,b\n"))

	if !IsKind(err, TransportError) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	assertFailedView(t, view, MsgTransport)
}

func TestSubmitCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, view, _ := newTestController(srv.URL)
	_, err := c.Submit(ctx, csvFile("a,b\n"))

	if !IsKind(err, TransportError) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the cause to be context.Canceled, got %v", err)
	}
	assertFailedView(t, view, MsgTransport)
}

func TestSubmitRendererFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_spent":1,"categories":{}}`)
	}))
	defer srv.Close()

	c, view, renderer := newTestController(srv.URL)
	renderer.err = errors.New("template missing")

	_, err := c.Submit(context.Background(), csvFile("a,b\n"))
	if err == nil {
		t.Fatal("Expected a failure when rendering fails")
	}
	assertFailedView(t, view, MsgGeneric)
}

func TestSubmitWhileBusy(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		fmt.Fprint(w, `{"total_spent":0,"categories":{}}`)
	}))
	defer srv.Close()

	c, view, _ := newTestController(srv.URL)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), csvFile("a,b\n"))
		done <- err
	}()

	<-arrived
	if c.State() != Submitting {
		t.Errorf("State = %s, want submitting", c.State())
	}

	before := view.callCount()
	_, err := c.Submit(context.Background(), csvFile("a,b\n"))
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if view.callCount() != before {
		t.Error("A rejected concurrent submit must not touch the view")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	if c.State() != Idle {
		t.Errorf("State = %s, want idle", c.State())
	}
}
