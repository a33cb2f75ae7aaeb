// Package proxy implements the request-path gateway: tier resolution, chain
// failover through provider tunnels, and response rewriting.
package proxy

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ccswitch/internal/config"
	"ccswitch/internal/models"
	"ccswitch/internal/routing"
	"ccswitch/internal/services"
	"ccswitch/internal/tunnel"
	"ccswitch/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// defaultTier is tried when no tier keyword matches the requested model.
const defaultTier = "default"

// Server dispatches /v1 requests to the provider chain of the resolved tier.
type Server struct {
	tierStore  *config.TierStore
	tunnels    *tunnel.Manager
	logService *services.RequestLogService
	client     *http.Client
}

// NewServer creates a gateway server. Upstream timeouts are enforced by the
// per-provider tunnels, so the local client carries none.
func NewServer(tierStore *config.TierStore, tunnels *tunnel.Manager, logService *services.RequestLogService) *Server {
	return &Server{
		tierStore:  tierStore,
		tunnels:    tunnels,
		logService: logService,
		client: &http.Client{
			Transport: &http.Transport{DisableCompression: true},
		},
	}
}

// ResolveTierName maps a requested model id to a tier name by keyword.
// "-thinking" models prefer a dedicated thinking tier when one is configured.
func (s *Server) ResolveTierName(model string) string {
	lower := strings.ToLower(model)

	if strings.Contains(lower, "thinking") {
		if _, ok := s.tierStore.FindTier("thinking"); ok {
			return "thinking"
		}
	}
	for _, keyword := range []string{"opus", "sonnet", "haiku"} {
		if strings.Contains(lower, keyword) {
			if _, ok := s.tierStore.FindTier(keyword); ok {
				return keyword
			}
		}
	}
	return defaultTier
}

// HandleProxy serves one /v1/* request: resolve the tier, walk its provider
// chain until a step succeeds, and relay the response through the stream
// rewriter.
func (s *Server) HandleProxy(c *gin.Context) {
	startTime := time.Now()

	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeGatewayError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	c.Request.Body.Close()

	requestedModel := gjson.GetBytes(bodyBytes, "model").String()
	isStream := gjson.GetBytes(bodyBytes, "stream").Bool()

	tierName := s.ResolveTierName(requestedModel)
	tier, ok := s.tierStore.FindTier(tierName)
	if !ok {
		writeGatewayError(c, http.StatusBadGateway, fmt.Sprintf("no tier configured for model %q", requestedModel))
		s.logRequest(c, tierName, "", requestedModel, http.StatusBadGateway, isStream, startTime, "no tier configured")
		return
	}

	steps := routing.Chain(tier)
	var lastErr string
	for i, step := range steps {
		provider, ok := s.tierStore.FindProvider(step.Provider)
		if !ok {
			lastErr = fmt.Sprintf("provider %q not configured", step.Provider)
			continue
		}

		status, retryable, errMsg := s.tryStep(c, provider, step, bodyBytes, isStream)
		if errMsg == "" {
			s.logRequest(c, tierName, step.Provider, step.Model, status, isStream, startTime, "")
			return
		}
		lastErr = errMsg
		if !retryable {
			s.logRequest(c, tierName, step.Provider, step.Model, status, isStream, startTime, errMsg)
			return
		}

		logrus.WithFields(logrus.Fields{
			"tier":     tierName,
			"provider": step.Provider,
			"step":     i,
			"error":    errMsg,
		}).Warn("Chain step failed, trying next")
	}

	writeGatewayError(c, http.StatusBadGateway, fmt.Sprintf("all providers failed for tier %q: %s", tierName, lastErr))
	s.logRequest(c, tierName, "", requestedModel, http.StatusBadGateway, isStream, startTime, lastErr)
}

// tryStep sends the request to one chain step through its provider tunnel.
// It returns the response status, whether a failure may fail over to the next
// step, and an error description ("" on success). Once response bytes have
// been written the failure is final regardless of cause.
func (s *Server) tryStep(c *gin.Context, provider models.ProviderConfig, step routing.Step, bodyBytes []byte, isStream bool) (int, bool, string) {
	port, err := s.tunnels.GetOrStart(provider)
	if err != nil {
		return 0, true, fmt.Sprintf("tunnel start failed: %v", err)
	}

	stepBody := bodyBytes
	if step.Model != "" && len(bodyBytes) > 0 && gjson.GetBytes(bodyBytes, "model").Exists() {
		stepBody, err = sjson.SetBytes(bodyBytes, "model", step.Model)
		if err != nil {
			return 0, true, fmt.Sprintf("model rewrite failed: %v", err)
		}
	}

	targetURL := fmt.Sprintf("http://127.0.0.1:%d%s", port, c.Request.URL.RequestURI())
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, strings.NewReader(string(stepBody)))
	if err != nil {
		return 0, true, fmt.Sprintf("build request failed: %v", err)
	}
	for name, values := range c.Request.Header {
		if name == "Content-Length" {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.ContentLength = int64(len(stepBody))

	resp, err := s.client.Do(req)
	if err != nil {
		// A disconnected client cannot receive a failover response, so the
		// chain walk stops here.
		if ctxErr := c.Request.Context().Err(); ctxErr != nil {
			return 0, false, fmt.Sprintf("client disconnected: %v", ctxErr)
		}
		return 0, true, fmt.Sprintf("upstream request failed: %v", err)
	}
	defer resp.Body.Close()

	// 429 and 5xx fail over to the next chain entry; other statuses are
	// relayed as-is, errors included.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, true, fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, utils.TruncateString(string(body), 200))
	}

	if isEventStream(resp) {
		return resp.StatusCode, false, s.relayStream(c, resp)
	}
	return resp.StatusCode, false, s.relayBody(c, resp)
}

// relayStream pipes an SSE response through a fresh rewriter.
func (s *Server) relayStream(c *gin.Context, resp *http.Response) string {
	copyResponseHeaders(c, resp, true)
	c.Writer.WriteHeader(resp.StatusCode)

	flusher, _ := c.Writer.(http.Flusher)
	flush := func() {}
	if flusher != nil {
		flush = flusher.Flush
	}

	rewriter := NewStreamRewriter()
	if err := rewriter.Rewrite(resp.Body, c.Writer, flush); err != nil {
		logrus.WithError(err).Debug("Stream relay ended early")
	}
	return ""
}

// relayBody forwards a non-stream response, decompressing it when needed so
// the model id can be normalized in place.
func (s *Server) relayBody(c *gin.Context, resp *http.Response) string {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Headers are not written yet, but the step is not retryable: the
		// upstream accepted the request.
		writeGatewayError(c, http.StatusBadGateway, fmt.Sprintf("failed to read upstream response: %v", err))
		return ""
	}

	encoding := resp.Header.Get("Content-Encoding")
	decoded, decodeErr := utils.DecompressResponse(encoding, body)
	if decodeErr != nil {
		logrus.WithError(decodeErr).WithField("encoding", encoding).Warn("Failed to decompress upstream response, relaying as-is")
		decoded = body
	} else if encoding != "" {
		resp.Header.Del("Content-Encoding")
	}

	if model := gjson.GetBytes(decoded, "model").String(); model != "" {
		if canonical, changed := utils.NormalizeModelID(model); changed {
			if rewritten, err := sjson.SetBytes(decoded, "model", canonical); err == nil {
				decoded = rewritten
			}
		}
	}

	copyResponseHeaders(c, resp, true)
	c.Writer.Header().Set("Content-Length", strconv.Itoa(len(decoded)))
	c.Writer.WriteHeader(resp.StatusCode)
	if _, err := c.Writer.Write(decoded); err != nil {
		logrus.WithError(err).Debug("Client disconnected during response write")
	}
	return ""
}

func (s *Server) logRequest(c *gin.Context, tierName, provider, model string, status int, isStream bool, startTime time.Time, errMsg string) {
	entry := &models.RequestLog{
		Timestamp:  startTime,
		Tier:       tierName,
		Provider:   provider,
		Model:      model,
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		StatusCode: status,
		IsSuccess:  errMsg == "" && status < 400,
		IsStream:   isStream,
		DurationMs: time.Since(startTime).Milliseconds(),
		SourceIP:   c.ClientIP(),
		ErrorMsg:   errMsg,
	}
	if err := s.logService.Record(entry); err != nil {
		logrus.WithError(err).Error("Failed to record request log")
	}
}

func isEventStream(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream")
}

// copyResponseHeaders mirrors the upstream headers. Content-Length is skipped
// when the body may be rewritten and therefore change size.
func copyResponseHeaders(c *gin.Context, resp *http.Response, skipLength bool) {
	for name, values := range resp.Header {
		if skipLength && name == "Content-Length" {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
}

// writeGatewayError emits the gateway's error contract: a JSON object with a
// single "error" field, matching what the tunnels produce for their own
// failures.
func writeGatewayError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
