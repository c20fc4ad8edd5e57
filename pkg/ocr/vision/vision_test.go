package vision

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
)

func fakeVision(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "images:annotate") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecognize(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "text filtered by whitelist",
			body: `{"responses":[{"fullTextAnnotation":{"text":"Pizza 250.00\n€Tea 3.00\n"}}]}`,
			want: "Pizza 250.00\nTea 3.00\n",
		},
		{
			name: "no text",
			body: `{"responses":[{}]}`,
			want: "",
		},
		{
			name:    "per-image error",
			body:    `{"responses":[{"error":{"code":3,"message":"bad image data"}}]}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := fakeVision(t, tc.body)
			r, err := New(context.Background(), srv.Client(), nil, option.WithEndpoint(srv.URL+"/"))
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			got, err := r.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)), "0-9A-Za-z. ")
			if (err != nil) != tc.wantErr {
				t.Fatalf("got err=%v, wantErr=%v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
