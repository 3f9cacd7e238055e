package server_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/pdf-extractor/internal/config"
	"github.com/kubev2v/pdf-extractor/internal/metrics"
	"github.com/kubev2v/pdf-extractor/internal/server"
	"github.com/kubev2v/pdf-extractor/internal/server/middlewares"
)

func signToken(secret string, method jwt.SigningMethod, expires time.Time) string {
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	s, err := token.SignedString([]byte(secret))
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Server", func() {
	var (
		cfg     *config.Configuration
		handler http.Handler
	)

	register := func(g *gin.RouterGroup) {
		g.GET("/whoami", func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString(middlewares.SubjectKey))
		})
		g.POST("/upload", func(c *gin.Context) {
			c.String(http.StatusOK, "uploaded")
		})
	}

	build := func() {
		srv, err := server.NewServer(cfg, metrics.New(), register)
		Expect(err).NotTo(HaveOccurred())
		handler = srv.Handler()
	}

	do := func(method, path, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		cfg = config.NewConfigurationWithOptionsAndDefaults()
	})

	Context("without authentication", func() {
		BeforeEach(build)

		It("serves registered api routes", func() {
			rec := do(http.MethodGet, "/api/v1/whoami", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("exposes prometheus metrics", func() {
			do(http.MethodGet, "/api/v1/whoami", "")
			rec := do(http.MethodGet, "/metrics", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("pdf_extractor_http_requests_total"))
		})

		It("serves uploads at the root as well", func() {
			rec := do(http.MethodPost, "/upload", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("uploaded"))
		})

		It("answers unknown routes with a json 404", func() {
			rec := do(http.MethodGet, "/nope", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(ContainSubstring("not found"))
		})

		It("sets cors headers for allowed origins", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
		})
	})

	Context("with authentication", func() {
		const secret = "s3cr3t"

		BeforeEach(func() {
			cfg.Auth.Enabled = true
			cfg.Auth.Secret = secret
			build()
		})

		It("rejects requests without a token", func() {
			Expect(do(http.MethodGet, "/api/v1/whoami", "").Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects malformed headers", func() {
			Expect(do(http.MethodGet, "/api/v1/whoami", "Token abc").Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects tokens signed with another secret", func() {
			token := signToken("other", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
			Expect(do(http.MethodGet, "/api/v1/whoami", "Bearer "+token).Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects expired tokens", func() {
			token := signToken(secret, jwt.SigningMethodHS256, time.Now().Add(-time.Hour))
			Expect(do(http.MethodGet, "/api/v1/whoami", "Bearer "+token).Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects other signing methods", func() {
			token := signToken(secret, jwt.SigningMethodHS512, time.Now().Add(time.Hour))
			Expect(do(http.MethodGet, "/api/v1/whoami", "Bearer "+token).Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts a valid token and exposes its subject", func() {
			token := signToken(secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))
			rec := do(http.MethodGet, "/api/v1/whoami", "Bearer "+token)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("tester"))
		})

		It("protects the root upload alias", func() {
			Expect(do(http.MethodPost, "/upload", "").Code).To(Equal(http.StatusUnauthorized))

			token := signToken(secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))
			Expect(do(http.MethodPost, "/upload", "Bearer "+token).Code).To(Equal(http.StatusOK))
		})

		It("leaves metrics unauthenticated", func() {
			Expect(do(http.MethodGet, "/metrics", "").Code).To(Equal(http.StatusOK))
		})
	})

	It("refuses to start authenticated without a secret", func() {
		cfg.Auth.Enabled = true
		_, err := server.NewServer(cfg, metrics.New(), register)
		Expect(err).To(HaveOccurred())
	})
})
