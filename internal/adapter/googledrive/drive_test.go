package googledrive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain id", "abc123", "'abc123'"},
		{"single quote", "O'Brien_CV.pdf", `'O\'Brien_CV.pdf'`},
		{"backslash", `a\b`, `'a\\b'`},
		{"empty", "", "''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quote(tt.in); got != tt.want {
				t.Errorf("quote(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type fakeDrive struct {
	lastQuery   string
	lastOrderBy string
	files       []map[string]any
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/files") && r.Method == http.MethodGet:
		f.lastQuery = r.URL.Query().Get("q")
		f.lastOrderBy = r.URL.Query().Get("orderBy")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"files": f.files})
	case strings.HasSuffix(path, "/files/missing"):
		writeAPIError(w, http.StatusNotFound, "File not found")
	case strings.HasSuffix(path, "/files/forbidden"):
		writeAPIError(w, http.StatusForbidden, "Insufficient permissions")
	case strings.HasSuffix(path, "/files/doc1"):
		if r.URL.Query().Get("alt") == "media" {
			w.Write([]byte("%PDF-1.4"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "doc1", "name": "Jane_CV.pdf", "mimeType": "application/pdf",
			"md5Checksum": "abc", "modifiedTime": "2025-01-02T03:04:05Z",
		})
	default:
		writeAPIError(w, http.StatusNotFound, "unexpected path "+path)
	}
}

func newTestAdapter(t *testing.T, fake *fakeDrive) *DriveAdapter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	d, err := NewDriveAdapter(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewDriveAdapter returned error: %v", err)
	}
	return d
}

func TestDriveAdapter_ListFiles(t *testing.T) {
	fake := &fakeDrive{files: []map[string]any{
		{"id": "1", "name": "Anna_CV.pdf", "mimeType": "application/pdf", "md5Checksum": "e1", "webViewLink": "https://drive/1"},
		{"id": "2", "name": "Bob_CV.pdf", "mimeType": "application/pdf", "md5Checksum": "e2"},
	}}
	d := newTestAdapter(t, fake)

	files, err := d.ListFiles(context.Background(), "folder'1", adapter.PDFMimeType)
	if err != nil {
		t.Fatalf("ListFiles returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].ETag != "e1" || files[0].WebViewLink != "https://drive/1" {
		t.Errorf("Unexpected metadata: %+v", files[0])
	}

	want := `'folder\'1' in parents and trashed = false and mimeType = 'application/pdf'`
	if fake.lastQuery != want {
		t.Errorf("Query = %q, want %q", fake.lastQuery, want)
	}
}

func TestDriveAdapter_FindFile(t *testing.T) {
	t.Run("returns newest match", func(t *testing.T) {
		fake := &fakeDrive{files: []map[string]any{
			{"id": "new", "name": "scores.csv", "md5Checksum": "v2"},
		}}
		d := newTestAdapter(t, fake)

		f, err := d.FindFile(context.Background(), "folder1", "scores.csv")
		if err != nil {
			t.Fatalf("FindFile returned error: %v", err)
		}
		if f.ID != "new" || f.ETag != "v2" {
			t.Errorf("Unexpected file: %+v", f)
		}
		if fake.lastOrderBy != "modifiedTime desc" {
			t.Errorf("orderBy = %q", fake.lastOrderBy)
		}
		if !strings.Contains(fake.lastQuery, "name = 'scores.csv'") {
			t.Errorf("Query missing name clause: %q", fake.lastQuery)
		}
	})

	t.Run("no match", func(t *testing.T) {
		d := newTestAdapter(t, &fakeDrive{})
		_, err := d.FindFile(context.Background(), "folder1", "queue.txt")
		if !errors.Is(err, adapter.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestDriveAdapter_GetFile(t *testing.T) {
	d := newTestAdapter(t, &fakeDrive{})

	f, err := d.GetFile(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("GetFile returned error: %v", err)
	}
	if string(f.Content) != "%PDF-1.4" || f.Name != "Jane_CV.pdf" {
		t.Errorf("Unexpected file: %+v", f)
	}
	if f.ModifiedTime.IsZero() {
		t.Error("Expected modified time to be parsed")
	}
}

func TestDriveAdapter_ErrorMapping(t *testing.T) {
	d := newTestAdapter(t, &fakeDrive{})

	if _, err := d.GetFile(context.Background(), "missing"); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	_, err := d.GetFile(context.Background(), "forbidden")
	if !errors.Is(err, adapter.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestProvider_RequiresCredential(t *testing.T) {
	p := NewProvider()
	if _, err := p.GetAdapter(context.Background(), nil); err == nil {
		t.Error("Expected error for nil credential")
	}
}
