package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

func TestSave_CreateAndReplace(t *testing.T) {
	modified := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	var gotMethods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "not authenticated"}) //nolint:errcheck
			return
		}
		var req saveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Title != "Onboarding" || string(req.Document) != `{"slides":[]}` {
			t.Errorf("request = %+v", req)
		}
		gotMethods = append(gotMethods, r.Method+" "+r.URL.Path)
		id := strings.TrimPrefix(r.URL.Path, "/api/projects/")
		if r.Method == http.MethodPost {
			id = "new-id"
		}
		json.NewEncoder(w).Encode(domain.SaveResult{ID: id, LastModified: modified}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token")
	res, err := c.Save(context.Background(), []byte(`{"slides":[]}`), "", "Onboarding")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if res.ID != "new-id" || !res.LastModified.Equal(modified) {
		t.Errorf("Save() = %+v", res)
	}
	if _, err := c.Save(context.Background(), []byte(`{"slides":[]}`), "p-7", "Onboarding"); err != nil {
		t.Fatalf("Save(existing) error: %v", err)
	}
	want := []string{"POST /api/projects", "PUT /api/projects/p-7"}
	if len(gotMethods) != 2 || gotMethods[0] != want[0] || gotMethods[1] != want[1] {
		t.Errorf("requests = %v, want %v", gotMethods, want)
	}
}

func TestSave_RejectsInvalidJSON(t *testing.T) {
	c := New("http://unused.invalid", "")
	if _, err := c.Save(context.Background(), []byte("{"), "", "x"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/abc" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "project not found"}) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"slides":[{"id":"s1"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	doc, err := c.Load(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(doc) != `{"slides":[{"id":"s1"}]}` {
		t.Errorf("Load() = %s", doc)
	}

	_, err = c.Load(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load(missing) err = %v, want ErrNotFound", err)
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("IsStatus(404) = false for %v", err)
	}
	if !strings.Contains(err.Error(), "project not found") {
		t.Errorf("error = %q, want server message", err)
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]domain.ProjectSummary{ //nolint:errcheck
			{ID: "a", Title: "Fire safety"},
			{ID: "b", Title: "Onboarding"},
		})
	}))
	defer srv.Close()

	list, err := New(srv.URL, "tok").List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 2 || list[1].Title != "Onboarding" {
		t.Errorf("List() = %+v", list)
	}
}

func TestDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/api/projects/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/api/projects/broken":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("disk full")) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	tests := []struct {
		id      string
		want    bool
		wantErr error
	}{
		{"p1", true, nil},
		{"gone", false, nil},
		{"broken", false, domain.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := c.Delete(context.Background(), tt.id)
			if got != tt.want {
				t.Errorf("Delete(%q) = %v, want %v", tt.id, got, tt.want)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("Delete(%q) error: %v", tt.id, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete(%q) err = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestUploadAndResolveAsset(t *testing.T) {
	stored := map[string]assetPayload{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/assets":
			var p assetPayload
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			id := p.ProjectID + "/" + p.Name
			stored[id] = p
			json.NewEncoder(w).Encode(domain.AssetRef{AssetID: id, AssetURL: "https://cdn.example.com/" + id}) //nolint:errcheck
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/assets/"):
			p, ok := stored[strings.TrimPrefix(r.URL.Path, "/api/assets/")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(p) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	data := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	ref, err := c.UploadAsset(context.Background(), domain.Blob{Data: data, MIMEType: "image/png"}, "logo.png", "p1")
	if err != nil {
		t.Fatalf("UploadAsset() error: %v", err)
	}
	if ref.AssetID != "p1/logo.png" {
		t.Errorf("AssetID = %q", ref.AssetID)
	}

	// The id contains a slash and travels path-escaped.
	blob, err := c.ResolveAsset(context.Background(), ref.AssetID)
	if err != nil {
		t.Fatalf("ResolveAsset() error: %v", err)
	}
	if !bytes.Equal(blob.Data, data) || blob.MIMEType != "image/png" {
		t.Errorf("ResolveAsset() = %+v", blob)
	}

	if _, err := c.ResolveAsset(context.Background(), "p1/none.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveAsset(missing) err = %v, want ErrNotFound", err)
	}
}

func TestUploadAsset_RejectsEmpty(t *testing.T) {
	c := New("http://unused.invalid", "")
	if _, err := c.UploadAsset(context.Background(), domain.Blob{}, "x.png", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "not authenticated"}) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad-token").List(context.Background())
	if err == nil {
		t.Fatal("expected error for unauthorized request")
	}
	if got := err.Error(); !strings.Contains(got, "HTTP 401") {
		t.Errorf("error = %q, want it to contain 'HTTP 401'", got)
	}
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("err = %v, want ErrPersistence", err)
	}
}

func TestIsStatus(t *testing.T) {
	err := asDomain(&HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "bad"})
	if !IsStatus(err, http.StatusUnprocessableEntity) {
		t.Error("IsStatus(422) = false")
	}
	if IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus(404) = true")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if IsStatus(errors.New("plain"), http.StatusNotFound) {
		t.Error("IsStatus on plain error = true")
	}
}
