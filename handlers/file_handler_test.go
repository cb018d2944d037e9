package handlers

import (
	"net/http"
	"strings"
	"testing"

	"quizbank-backend/service"
)

func TestGetTemplate(t *testing.T) {
	r := newTestRouter(t)

	w := perform(r, http.MethodGet, "/api/imports/template", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("template status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxMimeType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), templateFilename) {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	// xlsx is a zip archive
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Fatal("expected a zip payload")
	}
}

func TestGetImportFile(t *testing.T) {
	r := newTestRouter(t)
	view := startSession(t, r)

	w := perform(r, http.MethodGet, "/api/imports/"+view.SessionID+"/file", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("file status %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != questionsJSON {
		t.Fatal("downloaded file differs from upload")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	w = perform(r, http.MethodGet, "/api/imports/00000000-0000-0000-0000-000000000001/file", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	status, code := errorCode(service.ErrFileNotFound)
	if status != http.StatusNotFound || code != "FILE_NOT_FOUND" {
		t.Fatalf("got %d %q", status, code)
	}
	status, code = errorCode(http.ErrBodyNotAllowed)
	if status != http.StatusInternalServerError || code != "INTERNAL_ERROR" {
		t.Fatalf("got %d %q", status, code)
	}
}
