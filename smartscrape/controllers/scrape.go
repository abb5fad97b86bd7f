// smartscrape/controllers/scrape.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"smartscrape/smartscrape/services/browser"
	"smartscrape/smartscrape/services/pipeline"
	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

// Pipeline is the slice of the orchestrator the controller drives.
type Pipeline interface {
	ProcessQuery(ctx context.Context, query string) (*types.ExtractedResult, error)
	Status(ctx context.Context) types.PipelineStatus
	ClearCache()
}

// QueryController exposes the pipeline to both RPC surfaces: the
// websocket message channel and the REST routes share its methods.
type QueryController struct {
	pipe Pipeline
}

func NewQueryController(pipe Pipeline) *QueryController {
	return &QueryController{pipe: pipe}
}

// ScrapeQuery runs one query end to end.
func (c *QueryController) ScrapeQuery(ctx context.Context, query string) (*types.ExtractedResult, error) {
	return c.pipe.ProcessQuery(ctx, query)
}

// Status snapshots the pipeline.
func (c *QueryController) Status(ctx context.Context) types.PipelineStatus {
	return c.pipe.Status(ctx)
}

// ClearCache purges cached results and returns a user-facing message.
func (c *QueryController) ClearCache() string {
	c.pipe.ClearCache()
	return "Cache cleared"
}

// Dispatch routes one RPC message to the matching pipeline operation and
// builds the reply frame. Unknown actions and bad payloads come back as
// failed replies, never as dropped messages.
func (c *QueryController) Dispatch(ctx context.Context, msg types.Message) types.Reply {
	reply := types.Reply{ID: msg.ID}

	switch msg.Action {
	case types.ActionScrapeQuery:
		var req types.QueryRequest
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				reply.Error = fmt.Sprintf("invalid payload: %v", err)
				return reply
			}
		}
		res, err := c.ScrapeQuery(ctx, req.Query)
		if err != nil {
			logging.AppLogger.Warn("scrapeQuery rejected",
				zap.String("query", req.Query), zap.Error(err))
			reply.Error = err.Error()
			return reply
		}
		reply.Success = true
		reply.Data = res

	case types.ActionGetStatus:
		st := c.Status(ctx)
		reply.Success = true
		reply.Status = &st

	case types.ActionClearCache:
		reply.Success = true
		reply.Message = c.ClearCache()

	default:
		reply.Error = fmt.Sprintf("unknown action: %q", msg.Action)
	}
	return reply
}

// StatusFor maps a pipeline error to the HTTP status the REST surface
// answers with.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, pipeline.ErrEmptyQuery) {
		return http.StatusBadRequest
	}
	var rl *pipeline.RateLimitError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}
	var se *browser.ScrapeError
	if errors.As(err, &se) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
