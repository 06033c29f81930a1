// Package upload drives the statement upload lifecycle: file selection,
// validation, multipart submission to the analysis endpoint and hand-off of
// the decoded payload to a result renderer.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"

	applog "statementlens/internal/log"
	"statementlens/internal/models"
	"statementlens/internal/version"
)

const (
	// MaxFileSize is the largest accepted upload (16 MiB)
	MaxFileSize = 16 << 20

	// TypeCSV and TypeXLSX are the accepted MIME types
	TypeCSV  = "text/csv"
	TypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// FormField is the multipart field the endpoint reads
	FormField = "file"

	// ChooseFileLabel is shown when no file is selected
	ChooseFileLabel = "Choose File"

	// maxResponseSize caps how much of a response body is read
	maxResponseSize = 8 << 20
)

// State is a step of the submission lifecycle
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Rendering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Rendering:
		return "rendering"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// File is one candidate upload
type File struct {
	Name string
	Type string
	Size int64
	Body io.Reader
}

// View is the page surface the controller updates
type View interface {
	SetFileName(name string)
	SetBusy(busy bool)
	SetTriggerEnabled(enabled bool)
	ShowError(msg string)
	ClearError()
	SetResultsVisible(visible bool)
}

// ResultRenderer paints a successful payload
type ResultRenderer interface {
	Display(ctx context.Context, payload *models.AnalysisPayload) error
}

// Options configures a Controller
type Options struct {
	Endpoint string
	Client   *http.Client
	View     View
	Renderer ResultRenderer
	Logger   *applog.Logger
	// Header is added to every request, after the controller's own headers
	Header   http.Header
}

// Controller owns one page's upload lifecycle
type Controller struct {
	endpoint string
	client   *http.Client
	view     View
	renderer ResultRenderer
	header   http.Header
	log      *applog.Logger

	mu    sync.Mutex
	state State
}

// New creates a controller. A nil Client gets a plain http.Client with no
// timeout; cancel through the context instead.
func New(opts Options) *Controller {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	return &Controller{
		endpoint: opts.Endpoint,
		client:   client,
		view:     opts.View,
		renderer: opts.Renderer,
		header:   opts.Header.Clone(),
		log:      logger.WithComponent(applog.ComponentUpload),
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// begin moves Idle to Validating, or reports false if a submission is running
func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return false
	}
	c.state = Validating
	return true
}

// SelectFile updates the file name indicator. No validation happens here.
func (c *Controller) SelectFile(f *File) {
	name := ChooseFileLabel
	if f != nil && f.Name != "" {
		name = f.Name
	}
	c.view.SetFileName(name)
	c.log.Info("file selected", applog.FieldFile, name)
}

// Validate checks a file before submission: presence, then size, then type.
// MIME parameters are ignored.
func Validate(f *File) error {
	if f == nil {
		return &Failure{Kind: MissingFile, Message: MsgMissingFile}
	}
	if f.Size > MaxFileSize {
		return &Failure{Kind: TooLarge, Message: MsgTooLarge}
	}
	if !allowedType(f.Type) {
		return &Failure{Kind: InvalidType, Message: MsgInvalidType}
	}
	return nil
}

func allowedType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == TypeCSV || mediaType == TypeXLSX
}

// Submit validates f, posts it to the endpoint and renders the result.
// It returns ErrBusy without touching the view if a submission is running.
func (c *Controller) Submit(ctx context.Context, f *File) (*models.AnalysisPayload, error) {
	if !c.begin() {
		return nil, ErrBusy
	}
	defer c.setState(Idle)

	c.view.ClearError()
	if err := Validate(f); err != nil {
		return nil, c.fail(err)
	}

	c.setState(Submitting)
	c.view.SetBusy(true)
	c.view.SetTriggerEnabled(false)
	defer func() {
		c.view.SetBusy(false)
		c.view.SetTriggerEnabled(true)
	}()

	log := c.log.With(applog.FieldFile, f.Name)
	log.Info("submission started",
		applog.FieldEndpoint, c.endpoint,
		applog.FieldFileSize, f.Size,
		applog.FieldContentType, f.Type,
	)

	payload, err := c.send(ctx, f)
	if err != nil {
		return nil, c.fail(err)
	}

	c.setState(Rendering)
	if err := c.renderer.Display(ctx, payload); err != nil {
		return nil, c.fail(&Failure{
			Kind:    ServerError,
			Message: MsgGeneric,
			Err:     fmt.Errorf("render results: %w", err),
		})
	}
	c.view.SetResultsVisible(true)

	log.Info("submission succeeded",
		"categories", len(payload.Categories),
		"insights", len(payload.Insights),
	)
	return payload, nil
}

// fail records a failure on the view and returns it
func (c *Controller) fail(err error) error {
	c.setState(Failed)

	msg := MsgGeneric
	attrs := []any{applog.FieldError, err}
	var f *Failure
	if errors.As(err, &f) {
		msg = f.Message
		attrs = append(attrs, "kind", f.Kind.String())
		if f.Status != 0 {
			attrs = append(attrs, applog.FieldStatusCode, f.Status)
		}
		if f.Err != nil {
			attrs = append(attrs, "cause", f.Err)
		}
	}

	c.view.SetResultsVisible(false)
	c.view.ShowError(msg)

	if f != nil && f.Kind.Local() {
		c.log.Warn("file rejected", attrs...)
	} else {
		c.log.Error("submission failed", attrs...)
	}
	return err
}

// send posts the multipart body and decodes the response
func (c *Controller) send(ctx context.Context, f *File) (*models.AnalysisPayload, error) {
	body, contentType, err := encodeMultipart(f)
	if err != nil {
		return nil, &Failure{Kind: TransportError, Message: MsgTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &Failure{Kind: TransportError, Message: MsgTransport, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Failure{Kind: TransportError, Message: MsgTransport, Err: err}
	}
	defer resp.Body.Close()

	c.log.Info("response received", applog.FieldStatusCode, resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Failure{Kind: TransportError, Message: MsgTransport, Status: resp.StatusCode, Err: err}
	}

	return decodeResponse(resp.StatusCode, raw)
}

// decodeResponse maps a status and body to a payload or a Failure
func decodeResponse(status int, raw []byte) (*models.AnalysisPayload, error) {
	var payload models.AnalysisPayload
	decodeErr := decodeObject(raw, &payload)

	if status < 200 || status > 299 {
		if status >= 400 && status < 500 && decodeErr == nil && payload.Error != "" {
			return nil, &Failure{Kind: ServerError, Message: payload.Error, Status: status}
		}
		return nil, &Failure{
			Kind:    ServerError,
			Message: MsgGeneric,
			Status:  status,
			Err:     fmt.Errorf("status %d: %s", status, snippet(raw)),
		}
	}

	if decodeErr != nil {
		return nil, &Failure{
			Kind:    ServerError,
			Message: MsgGeneric,
			Status:  status,
			Err:     fmt.Errorf("decode response: %w", decodeErr),
		}
	}
	if payload.Error != "" {
		return nil, &Failure{Kind: SemanticError, Message: payload.Error, Status: status}
	}
	return &payload, nil
}

// decodeObject unmarshals raw, which must be a JSON object
func decodeObject(raw []byte, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("response is not a JSON object")
	}
	return json.Unmarshal(trimmed, v)
}

func snippet(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds a body with a single file part carrying f's type
func encodeMultipart(f *File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", f.Type)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if f.Body != nil {
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
