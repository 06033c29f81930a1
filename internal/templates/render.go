// Package templates loads and renders the HTML template set.
package templates

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"

	"statementlens/internal/format"
	applog "statementlens/internal/log"
)

// templateDirs are scanned in order for *.html files
var templateDirs = []string{"layouts", "pages", "partials"}

var (
	lineNumberRe   = regexp.MustCompile(`:(\d+):`)
	templateCallRe = regexp.MustCompile(`\{\{-?\s*template\s+"([^"]+)"`)
)

// Renderer handles template rendering
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
	fsys      fs.FS
	debug     bool
	log       *applog.Logger
}

// New parses every template in fsys. In debug mode templates are reparsed
// before each full-page render.
func New(fsys fs.FS, debug bool, logger *applog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	r := &Renderer{
		fsys:  fsys,
		debug: debug,
		log:   logger.WithComponent(applog.ComponentTemplate),
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// FuncMap returns the template function map
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"capitalize": format.Capitalize,
		"lower":      strings.ToLower,
	}
}

// loadTemplates parses all templates with strict validation
func (r *Renderer) loadTemplates() error {
	tmpl := template.New("").Funcs(FuncMap())

	var templateFiles []string
	for _, dir := range templateDirs {
		matches, err := fs.Glob(r.fsys, path.Join(dir, "*.html"))
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", dir, err)
		}
		templateFiles = append(templateFiles, matches...)
	}

	if len(templateFiles) == 0 {
		return fmt.Errorf("no template files found")
	}

	var parseErrors []string
	sources := make(map[string]string, len(templateFiles))
	for _, file := range templateFiles {
		content, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("  %s: failed to read: %v", file, err))
			continue
		}
		sources[file] = string(content)

		if _, err := tmpl.New(path.Base(file)).Parse(string(content)); err != nil {
			parseErrors = append(parseErrors, formatTemplateError(file, string(content), err))
		}
	}

	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			r.log.Error("template parse error", "detail", e)
		}
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	if err := r.validateTemplateReferences(tmpl, templateFiles, sources); err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	r.log.Debug("templates loaded", applog.FieldCount, len(templateFiles))
	return nil
}

// formatTemplateError formats a template error with file context
func formatTemplateError(file, content string, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: ", file)

	errStr := err.Error()
	lineNum := extractLineNumber(errStr)
	if lineNum == 0 {
		sb.WriteString(errStr)
		return sb.String()
	}

	fmt.Fprintf(&sb, "line %d: %s\n", lineNum, errStr)
	lines := strings.Split(content, "\n")
	start := max(lineNum-3, 0)
	end := min(lineNum+2, len(lines))
	for i := start; i < end; i++ {
		marker := "   "
		if i+1 == lineNum {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "  %s %4d | %s\n", marker, i+1, lines[i])
	}
	return sb.String()
}

// extractLineNumber tries to extract a line number from a template error
func extractLineNumber(errStr string) int {
	matches := lineNumberRe.FindStringSubmatch(errStr)
	if len(matches) < 2 {
		return 0
	}
	var lineNum int
	fmt.Sscanf(matches[1], "%d", &lineNum)
	return lineNum
}

// validateTemplateReferences checks that every {{template "name"}} call
// names a defined template
func (r *Renderer) validateTemplateReferences(tmpl *template.Template, files []string, sources map[string]string) error {
	defined := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Name() != "" {
			defined[t.Name()] = true
		}
	}

	var refErrors []string
	for _, file := range files {
		scanner := bufio.NewScanner(strings.NewReader(sources[file]))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			for _, match := range templateCallRe.FindAllStringSubmatch(line, -1) {
				if !defined[match[1]] {
					refErrors = append(refErrors, fmt.Sprintf("%s:%d: undefined template %q", file, lineNum, match[1]))
				}
			}
		}
	}

	if len(refErrors) > 0 {
		for _, e := range refErrors {
			r.log.Error("undefined template reference", "detail", e)
		}
		return fmt.Errorf("found %d undefined template reference(s)", len(refErrors))
	}

	return nil
}

// Reload reparses the template set
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

func (r *Renderer) current() *template.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates
}

// Render renders a full page with status 200
func (r *Renderer) Render(w http.ResponseWriter, name string, data any) error {
	return r.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a full page with the given status. The status is only
// written once the template has executed cleanly.
func (r *Renderer) RenderStatus(w http.ResponseWriter, status int, name string, data any) error {
	if r.debug {
		if err := r.loadTemplates(); err != nil {
			r.log.Error("error reloading templates", applog.FieldError, err)
		}
	}

	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		r.log.Error("error rendering template", "template", name, applog.FieldError, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.WriteString(w, buf.String())
	return err
}

// RenderToString renders a template to a string
func (r *Renderer) RenderToString(name string, data any) (string, error) {
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTML is RenderToString for fragments embedded in other templates
func (r *Renderer) RenderHTML(name string, data any) (template.HTML, error) {
	s, err := r.RenderToString(name, data)
	return template.HTML(s), err
}
