package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			json.NewEncoder(w).Encode(map[string]string{"method": r.Method, "type": r.Header.Get("Content-Type")})
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			w.Write(body)
		case "/upload":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(file)
			json.NewEncoder(w).Encode(map[string]string{
				"name":    header.Filename,
				"data":    string(data),
				"product": r.FormValue("product_name"),
			})
		case "/overloaded":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"model is overloaded"}`))
		default:
			http.Error(w, "plain failure", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		var got map[string]string
		if err := client.Get(ctx, "/ok", &got); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got["method"] != http.MethodGet {
			t.Errorf("method = %s", got["method"])
		}
	})

	t.Run("post json", func(t *testing.T) {
		var got map[string]string
		if err := client.Post(ctx, "/echo", map[string]string{"product_name": "Serum"}, &got); err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		if got["product_name"] != "Serum" {
			t.Errorf("echo = %v", got)
		}
	})

	t.Run("multipart", func(t *testing.T) {
		var got map[string]string
		err := client.PostMultipart(ctx, "/upload",
			map[string]string{"product_name": "Serum"},
			Upload{Field: "file", Filename: "/tmp/dir/brochure.txt", Data: []byte("hello")},
			&got)
		if err != nil {
			t.Fatalf("PostMultipart() error = %v", err)
		}
		if got["name"] != "brochure.txt" || got["data"] != "hello" || got["product"] != "Serum" {
			t.Errorf("upload = %v", got)
		}
	})

	t.Run("json error body", func(t *testing.T) {
		err := client.Get(ctx, "/overloaded", nil)
		if !IsStatus(err, http.StatusServiceUnavailable) {
			t.Fatalf("expected 503 StatusError, got %v", err)
		}
		if !strings.Contains(err.Error(), "model is overloaded") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("plain error body", func(t *testing.T) {
		err := client.Get(ctx, "/missing", nil)
		if !IsStatus(err, http.StatusInternalServerError) {
			t.Fatalf("expected 500 StatusError, got %v", err)
		}
	})
}

func TestOutputTo(t *testing.T) {
	data := struct {
		Title string   `json:"title"`
		USPs  []string `json:"usps"`
	}{"Hello <b>", []string{"a", "b"}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"title": "Hello <b>"`) {
			t.Errorf("unexpected json:\n%s", buf.String())
		}
	})

	t.Run("yaml keeps order and block style", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
			t.Fatal(err)
		}
		want := "title: Hello <b>\nusps:\n  - a\n  - b\n"
		if buf.String() != want {
			t.Errorf("yaml = %q, want %q", buf.String(), want)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := OutputTo(io.Discard, OutputFormat("xml"), data); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestParseOutputFormat(t *testing.T) {
	tests := map[string]OutputFormat{"json": OutputFormatJSON, "YAML": OutputFormatYAML, "yml": OutputFormatYAML, "": OutputFormatYAML}
	for in, want := range tests {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

type fakeEndpoint struct {
	use, path string
	init      bool
	group     string
}

func (e fakeEndpoint) Route() (string, string, http.HandlerFunc) {
	return http.MethodGet, e.path, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
}
func (e fakeEndpoint) RequiresInit() bool { return e.init }
func (e fakeEndpoint) Command(func() string) *cobra.Command {
	return &cobra.Command{Use: e.use}
}

type groupedEndpoint struct{ fakeEndpoint }

func (e groupedEndpoint) Group() (string, string) { return e.group, "group " + e.group }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeEndpoint{use: "health", path: "/health"})
	r.Register(groupedEndpoint{fakeEndpoint{use: "list", path: "/api/llmcalls", init: true, group: "llmcalls"}})
	r.Register(groupedEndpoint{fakeEndpoint{use: "get", path: "/api/llmcalls/{id}", group: "llmcalls"}})

	t.Run("routes and init middleware", func(t *testing.T) {
		mux := http.NewServeMux()
		gated := 0
		r.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, req *http.Request) {
				gated++
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		})

		for path, want := range map[string]int{"/health": 204, "/api/llmcalls": 503, "/api/llmcalls/x": 204} {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != want {
				t.Errorf("%s: status %d, want %d", path, rec.Code, want)
			}
		}
		if gated != 1 {
			t.Errorf("middleware ran %d times, want 1", gated)
		}
	})

	t.Run("commands grouped", func(t *testing.T) {
		root := r.BuildCommands(func() string { return "" })
		if len(root.Commands()) != 2 {
			t.Fatalf("expected 2 top-level commands, got %d", len(root.Commands()))
		}
		cmd, _, err := root.Find([]string{"llmcalls", "get"})
		if err != nil || cmd.Use != "get" {
			t.Errorf("llmcalls get not found: %v", err)
		}
	})
}
