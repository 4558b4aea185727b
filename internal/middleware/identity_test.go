package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentityResolvesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen uint
	router := gin.New()
	router.Use(Identity())
	router.GET("/whoami", func(c *gin.Context) {
		seen = UserID(c)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantID     uint
	}{
		{"valid", "42", http.StatusOK, 42},
		{"missing", "", http.StatusBadRequest, 0},
		{"not a number", "abc", http.StatusBadRequest, 0},
		{"zero", "0", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("X-User-ID", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if seen != tc.wantID {
				t.Errorf("resolved id = %d, want %d", seen, tc.wantID)
			}
		})
	}
}
