package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/middleware"
)

// CallableFunc serves one named RPC. data is the raw "data" member of the request.
type CallableFunc func(c *gin.Context, data json.RawMessage) (interface{}, error)

// Callables dispatches POST /rpc/:name to registered functions and writes the
// callable envelope.
type Callables struct {
	log   *zap.Logger
	funcs map[string]CallableFunc
}

// NewCallables returns an empty registry.
func NewCallables(log *zap.Logger) *Callables {
	return &Callables{log: log, funcs: make(map[string]CallableFunc)}
}

// Handle registers fn under name. Registering a name twice panics.
func (r *Callables) Handle(name string, fn CallableFunc) {
	if _, dup := r.funcs[name]; dup {
		panic("api: callable registered twice: " + name)
	}
	r.funcs[name] = fn
}

// Len returns the number of registered functions.
func (r *Callables) Len() int { return len(r.funcs) }

// Serve is the gin handler for POST /rpc/:name.
func (r *Callables) Serve(c *gin.Context) {
	name := c.Param("name")
	fn, ok := r.funcs[name]
	if !ok {
		writeCallableError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Function %s not found", name))
		return
	}

	var req CallableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeCallableError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
		return
	}

	result, err := fn(c, req.Data)
	if err != nil {
		r.fail(c, name, err)
		return
	}
	c.JSON(http.StatusOK, CallableResponse{Result: result})
}

func (r *Callables) fail(c *gin.Context, name string, err error) {
	kind := core.KindOf(err)
	code, status := callableStatus(kind)
	fields := []zap.Field{
		zap.String("function", name),
		zap.String("kind", string(kind)),
		zap.String("request_id", middleware.RequestID(c)),
		zap.Error(err),
	}
	if kind == core.KindInternal {
		r.log.Error("Callable failed", fields...)
	} else {
		r.log.Info("Callable rejected", fields...)
	}
	writeCallableError(c, code, status, core.MessageOf(err))
}

func callableStatus(kind core.Kind) (int, string) {
	switch kind {
	case core.KindInvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case core.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case core.KindUnauthenticated:
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeCallableError(c *gin.Context, code int, status, message string) {
	c.JSON(code, CallableErrorResponse{Error: CallableError{Status: status, Message: message}})
}

// decodeData unmarshals a callable payload, which must be a JSON object.
func decodeData(raw json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return core.ErrInvalidRequest
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

// decodeOptional is decodeData for calls whose payload may be absent.
func decodeOptional(raw json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return decodeData(trimmed, v)
}
