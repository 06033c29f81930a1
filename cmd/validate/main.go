// Package main provides a CLI tool for validating statementlens server endpoints.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type endpoint struct {
	path        string
	method      string
	contentType string
	contains    []string
	// upload, when set, posts the sample statement in this multipart field
	upload string
}

var endpoints = []endpoint{
	// Pages
	{path: "/", method: "GET", contentType: "text/html", contains: []string{"uploadForm", "bankStatement", "Choose File"}},
	{path: "/report", method: "POST", contentType: "text/html", contains: []string{"Total Spent", "Recommendations", "<svg"}, upload: "bankStatement"},

	// Static assets
	{path: "/static/app.css", method: "GET", contentType: "text/css", contains: nil},
	{path: "/static/app.js", method: "GET", contentType: "javascript", contains: nil},

	// API
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
	{path: "/upload", method: "POST", contentType: "application/json", contains: []string{`"total_spent"`, `"categories"`}, upload: "file"},
}

// sampleStatement is posted when no -file is given
const sampleStatement = `Data,Valor,Identificador,Descrição
01/03/2024,3200.00,validate-0001,Transferência recebida pelo Pix - Empresa LTDA
02/03/2024,-42.50,validate-0002,Compra no débito - Padaria Central
04/03/2024,-310.00,validate-0003,Compra no débito - Supermercado Bom Preco
06/03/2024,-89.90,validate-0004,Compra no crédito - Uber Trip
09/03/2024,-640.00,validate-0005,Compra no débito - Restaurante Sabor
`

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
	body     string
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	file := flag.String("file", "", "CSV or XLSX statement to upload (default: built-in sample)")
	flag.Parse()

	sample := statement{name: "sample.csv", data: []byte(sampleStatement)}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot read %s: %v\n", *file, err)
			os.Exit(2)
		}
		sample = statement{name: filepath.Base(*file), data: data}
	}

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	var results []result

	for _, ep := range endpoints {
		r := validateEndpoint(client, *url, ep, sample)
		results = append(results, r)

		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
		} else if r.status != http.StatusOK {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Status: %d (expected 200)\n", r.status)
		} else {
			passed++
			if *verbose {
				fmt.Printf("PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

type statement struct {
	name string
	data []byte
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint, sample statement) result {
	start := time.Now()

	var body io.Reader
	var formType string
	if ep.upload != "" {
		var err error
		body, formType, err = multipartBody(ep.upload, sample)
		if err != nil {
			return result{endpoint: ep, err: fmt.Errorf("failed to build upload: %w", err)}
		}
	}

	req, err := http.NewRequest(ep.method, baseURL+ep.path, body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if formType != "" {
		req.Header.Set("Content-Type", formType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	duration := time.Since(start)

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: duration,
		body:     string(respBody),
	}

	// Validate content type
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	// Validate JSON if expected
	if ep.contentType == "application/json" {
		var js map[string]any
		if err := json.Unmarshal(respBody, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
		if msg, ok := js["error"].(string); ok && msg != "" {
			r.err = fmt.Errorf("analysis error: %s", msg)
			return r
		}
	}

	// Validate required content
	for _, needle := range ep.contains {
		if !strings.Contains(r.body, needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}

// multipartBody wraps the statement in a single file part. XLSX files get
// their spreadsheet type, anything else is sent as CSV.
func multipartBody(field string, sample statement) (io.Reader, string, error) {
	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(sample.name), ".xlsx") {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, sample.name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(sample.data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
