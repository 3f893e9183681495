package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/common/id"
	"dataagentjp.io/querycore/common/logger"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/events"
	"dataagentjp.io/querycore/internal/http/dto"
	"dataagentjp.io/querycore/internal/service"
)

type QueryHandler struct {
	service        service.QueryService
	defaultTimeout time.Duration
}

func NewQueryHandler(queryService service.QueryService, defaultTimeout time.Duration) *QueryHandler {
	return &QueryHandler{
		service:        queryService,
		defaultTimeout: defaultTimeout,
	}
}

// Execute runs the pipeline to completion and returns the batch
// response. The envelope is always the structured response; HTTP 400
// is reserved for requests the binder cannot read at all.
func (h *QueryHandler) Execute(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Component: "querycore.http.query",
	})

	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid execute request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := h.queryRequest(req)
	ctx = logger.WithLogFields(ctx, logger.LogFields{TaskID: logger.Ptr(q.TaskID)})

	sink := events.NewCollector()
	resp := h.service.Execute(ctx, q, sink)
	if resp.Error != nil && resp.Error.Code == domain.ErrorCodeQueryCancelled {
		// Client is gone; there is nobody left to answer.
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Stream runs the pipeline with live server-sent events, one per
// stage. The stream terminates with a final or error event; a client
// disconnect stops the pipeline at the next stage boundary.
func (h *QueryHandler) Stream(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Component: "querycore.http.query",
	})

	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid stream request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	q := h.queryRequest(req)
	ctx = logger.WithLogFields(ctx, logger.LogFields{TaskID: logger.Ptr(q.TaskID)})

	setSSEHeaders(c.Writer)

	sink := &sseSink{w: c.Writer, flusher: flusher}
	h.service.Execute(ctx, q, sink)
}

func (h *QueryHandler) queryRequest(req dto.ExecuteRequest) service.QueryRequest {
	taskID := req.TaskID
	if taskID == "" {
		taskID = strconv.FormatInt(id.New(), 10)
	}
	q := service.QueryRequest{
		TaskID:  taskID,
		NLQ:     req.TaskData.NLQ,
		Locale:  req.EffectiveLocale(),
		Timeout: h.defaultTimeout,
	}
	if opts := req.TaskData.Options; opts != nil {
		if opts.Timeout > 0 {
			q.Timeout = time.Duration(opts.Timeout) * time.Second
		}
		q.Limit = opts.Limit
		q.CountTotal = opts.CountTotal
		q.NoCache = opts.NoCache
	}
	return q
}

// sseSink writes each pipeline event to the response as it happens.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Emit(_ context.Context, event events.Event) error {
	sseWrite(s.w, string(event.Stage), event)
	s.flusher.Flush()
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, event string, data any) {
	payload := marshalPayload(data)
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	default:
		bytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(bytes)
	}
}
