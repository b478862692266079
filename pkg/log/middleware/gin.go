package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
	"moff.io/wallet-modal/pkg/log/meta"
)

const requestIDHeader = "x-request-id"

// Custom response writer to record handler response body.
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write writes response message into response body and the connection.
func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

type httpInfo struct {
	Headers       map[string]string `json:"headers"`
	Method        string            `json:"method"`
	RequestAPI    string            `json:"request_api,omitempty"`
	RemoteAddr    string            `json:"remote_addr,omitempty"`
	Response      *response         `json:"response,omitempty"`
	ExecutionTime string            `json:"execution_time,omitempty"`
}

func newHTTPInfo(ctx *gin.Context) *httpInfo {
	return &httpInfo{
		Headers:    requestHeaderFilter(ctx.Request.Header),
		Method:     ctx.Request.Method,
		RequestAPI: ctx.Request.RequestURI,
		RemoteAddr: ctx.ClientIP(),
	}
}

func (in *httpInfo) String() string {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Sprintf("%v %v", in.Method, in.RequestAPI)
	}
	return string(b)
}

// RecoveredHTTPLog logs every request with its response and recovers handler
// panics. Websocket upgrades are logged without capturing the body.
func RecoveredHTTPLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rctx := meta.Begin(ctx.Request.Context())
		requestID := ctx.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		meta.WithValue(rctx, meta.RequestID, requestID)
		ctx.Request = ctx.Request.WithContext(rctx)

		upgrade := strings.EqualFold(ctx.GetHeader("Upgrade"), "websocket")
		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: ctx.Writer}
		if !upgrade {
			ctx.Writer = w
			ctx.Header("request-id", requestID)
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err := errors.ErrorfAndReport("%v", r)
				log.Error(err)
			}
			logHTTP(ctx, w, start, upgrade)
		}()
		ctx.Next()
	}
}

const defaultRequestTimeout = time.Second * 60

// TimeoutHTTP HTTP超时拦截器
func TimeoutHTTP(timeout ...time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		d := defaultRequestTimeout
		if len(timeout) != 0 && timeout[0] > 0 {
			d = timeout[0]
		}
		timeoutCtx, cancelFunc := context.WithTimeout(ctx.Request.Context(), d)
		defer cancelFunc()
		ctx.Request = ctx.Request.WithContext(timeoutCtx)
		ctx.Next()
	}
}

func logHTTP(ctx *gin.Context, w *responseBodyWriter, start time.Time, upgrade bool) {
	if !upgrade && !ctx.Writer.Written() {
		ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"code": 5000,
			"msg":  "Server internal error",
		})
	}

	s := ctx.Writer.Status()
	info := newHTTPInfo(ctx)
	if !upgrade {
		info.Response = decodeHandlerResponse(w.body.Bytes(), s)
	}
	info.ExecutionTime = fmt.Sprintf("%vms", time.Since(start).Milliseconds())
	entry := log.WithFields(meta.Fields(ctx.Request.Context()))
	switch {
	case s < http.StatusBadRequest:
		entry.Debugf("%v", info)
	case s >= http.StatusInternalServerError:
		entry.Errorf("%v", info)
	default:
		entry.Warnf("%v", info)
	}
}

type response struct {
	//ProtocolCode is the response protocol status code
	ProtocolCode int `json:"protocol_code"`
	//Code is the response business code.
	Code interface{} `json:"code,omitempty"`
	//Message is the response message.
	Message interface{} `json:"msg,omitempty"`
}

func decodeHandlerResponse(respBody []byte, httpCode int) *response {
	var resp response
	_ = json.Unmarshal(respBody, &resp)
	resp.ProtocolCode = httpCode
	return &resp
}

var excludedHeaders = map[string]bool{
	"token":         true,
	"access-token":  true,
	"authorization": true,
	"cookie":        true,
}

func requestHeaderFilter(headers map[string][]string) map[string]string {
	filtered := make(map[string]string)
	for k, v := range headers {
		k = strings.ToLower(k)
		if excludedHeaders[k] {
			continue
		}
		filtered[k] = strings.Join(v, ";")
	}
	return filtered
}
