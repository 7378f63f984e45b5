// Package gateway forwards public requests to the backing services.
package gateway

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Headers that describe a single hop and must not be forwarded.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

type Proxy struct {
	target     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewProxy(target string, timeout time.Duration, logger *zap.Logger) *Proxy {
	return &Proxy{
		target: strings.TrimRight(target, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Forward relays the request unchanged to the same path on the target.
func (p *Proxy) Forward(c *gin.Context) {
	const op = "gateway.Forward"

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, p.target+c.Request.URL.RequestURI(), c.Request.Body)
	if err != nil {
		response.Error(c, p.logger, apperr.E(apperr.Internal, op, err))
		return
	}
	req.ContentLength = c.Request.ContentLength
	copyHeaders(req.Header, c.Request.Header)
	req.Header.Set("X-Forwarded-For", c.ClientIP())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		response.Error(c, p.logger, apperr.E(apperr.Unavailable, op, err))
		return
	}
	defer resp.Body.Close()

	// Content-Type and Content-Length are set by DataFromReader
	copyHeaders(c.Writer.Header(), resp.Header, "Content-Type", "Content-Length")

	c.DataFromReader(resp.StatusCode, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, map[string]string{})
}

// copyHeaders adds every value of each end-to-end header in src to dst.
func copyHeaders(dst, src http.Header, skip ...string) {
	for name, values := range src {
		if hopHeaders[name] || slices.Contains(skip, name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
