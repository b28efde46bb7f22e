// Package testutil provides shared test fixtures and HTTP helpers.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/geom"
)

// SixDirections returns six horizontal lines named D0..D5 at y = 0, 100, ...
// 500, each spanning x 0..1000.
func SixDirections() []config.Direction {
	dirs := make([]config.Direction, config.RequiredDirections)
	for i := range dirs {
		dirs[i] = config.Direction{
			Name: fmt.Sprintf("D%d", i),
			Line: geom.Line{A: geom.Point{X: 0, Y: i * 100}, B: geom.Point{X: 1000, Y: i * 100}},
		}
	}
	return dirs
}

// Serve runs one request against h and returns the recorder.
func Serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

// GetJSON issues a GET against h, checks for 200 and decodes the body into out.
func GetJSON(t *testing.T, h http.Handler, path string, out interface{}) {
	t.Helper()
	w := Serve(h, http.MethodGet, path)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status code = %d, want 200; body %s", path, w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("GET %s: decode: %v", path, err)
	}
}
