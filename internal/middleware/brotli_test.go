package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func TestBrotli(t *testing.T) {
	gin.SetMode(gin.TestMode)

	large := strings.Repeat("jawaban tersimpan ", 200)
	small := "ok"

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, small) })

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		want           string
		wantBrotli     bool
	}{
		{name: "large compressed", path: "/large", acceptEncoding: "gzip, br", want: large, wantBrotli: true},
		{name: "small passthrough", path: "/small", acceptEncoding: "br", want: small},
		{name: "client without br", path: "/large", acceptEncoding: "gzip", want: large},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			gotBrotli := w.Header().Get("Content-Encoding") == "br"
			if gotBrotli != tc.wantBrotli {
				t.Fatalf("Content-Encoding br = %v, want %v", gotBrotli, tc.wantBrotli)
			}

			var body io.Reader = w.Body
			if gotBrotli {
				body = brotli.NewReader(w.Body)
			}
			got, err := io.ReadAll(body)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tc.want {
				t.Errorf("body length %d, want %d", len(got), len(tc.want))
			}
		})
	}
}
