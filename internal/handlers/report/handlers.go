// Package report serves the upload page and renders analysis results into it.
package report

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apphttp "statementlens/internal/http"
	applog "statementlens/internal/log"
	"statementlens/internal/render"
	"statementlens/internal/templates"
	"statementlens/internal/upload"
	"statementlens/internal/version"
)

// PageField is the multipart field the upload form posts
const PageField = "bankStatement"

// maxRequestSize lets oversized files through to validation so they fail as
// too large rather than as a broken form
const maxRequestSize = 2*upload.MaxFileSize + 1<<20

// maxMemory is how much of a form is kept in memory before spilling to disk
const maxMemory = 32 << 20

var (
	renderer *templates.Renderer
	charts   render.ChartRenderer
	endpoint string
	client   *http.Client
	header   http.Header
)

// Initialize sets up the report package with required dependencies. A nil
// client uses the controller default. h is sent with every analysis request.
func Initialize(tmpl *templates.Renderer, chartRenderer render.ChartRenderer, c *http.Client, h http.Header) {
	renderer = tmpl
	charts = chartRenderer
	client = c
	header = h
}

// SetEndpoint sets the analysis URL uploads are posted to. It is resolved
// once the listener is bound.
func SetEndpoint(url string) {
	endpoint = url
}

// RegisterRoutes registers the page routes
func RegisterRoutes(r chi.Router) {
	r.Get("/", handleIndex)
	r.Post("/report", handleReport)
}

type pageData struct {
	Title   string
	Version string
	Page    *render.Page
}

func newPageData(page *render.Page) pageData {
	return pageData{
		Title:   "Bank Statement Analyzer",
		Version: version.Version,
		Page:    page,
	}
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	apphttp.RenderTemplate(w, renderer, "index", newPageData(render.NewPage()))
}

func handleReport(w http.ResponseWriter, r *http.Request) {
	if renderer == nil {
		apphttp.RenderTemplate(w, nil, "index", nil)
		return
	}
	log := applog.FromContext(r.Context())

	page := render.NewPage()
	res := render.New(renderer, charts, page, log)
	defer res.Close()

	ctrl := upload.New(upload.Options{
		Endpoint: endpoint,
		Client:   client,
		View:     page,
		Renderer: res,
		Logger:   log,
		Header:   header,
	})

	file := formFile(w, r, log)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if file != nil {
		if c, ok := file.Body.(io.Closer); ok {
			defer c.Close()
		}
	}

	ctrl.SelectFile(file)
	_, err := ctrl.Submit(r.Context(), file)

	renderer.RenderStatus(w, statusFor(err), "index", newPageData(page))
}

// formFile extracts the selected file, or nil when none was chosen. Bodies
// past maxRequestSize become a placeholder that fails validation as too large.
func formFile(w http.ResponseWriter, r *http.Request, log *applog.Logger) *upload.File {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &upload.File{Size: max(r.ContentLength, upload.MaxFileSize+1)}
		}
		log.Debug("no multipart form", applog.FieldError, err)
		return nil
	}

	f, header, err := r.FormFile(PageField)
	if err != nil || header.Filename == "" {
		return nil
	}
	return &upload.File{
		Name: header.Filename,
		Type: header.Header.Get("Content-Type"),
		Size: header.Size,
		Body: f,
	}
}

// statusFor maps a submission outcome to the page's response status
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var failure *upload.Failure
	if !errors.As(err, &failure) {
		return http.StatusInternalServerError
	}
	switch failure.Kind {
	case upload.TooLarge:
		return http.StatusRequestEntityTooLarge
	case upload.MissingFile, upload.InvalidType:
		return http.StatusBadRequest
	case upload.SemanticError:
		return http.StatusUnprocessableEntity
	case upload.ServerError:
		if failure.Status >= 400 && failure.Status < 500 {
			return failure.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
