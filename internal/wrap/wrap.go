// Package wrap substitutes named MCP capabilities with instrumented
// equivalents that report timing and outcome to a monitor.Engine. Wrapping is
// transparent: the caller sees the same result, the same error, and the same
// side effects as with the original capability. The only added behavior is
// the report to the engine, which completes before the wrapped call returns.
package wrap

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// Capability is an invocable unit accepting arbitrary positional inputs.
// Tool handlers, resource readers, and prompt renderers all share this shape.
type Capability func(ctx context.Context, args ...any) (any, error)

// Tools returns a copy of tools in which every capability reports each
// invocation to eng. The first positional argument becomes the recorded
// params payload; calls with no arguments record an empty payload.
func Tools(eng *monitor.Engine, tools map[string]Capability) map[string]Capability {
	wrapped := make(map[string]Capability, len(tools))
	for name, fn := range tools {
		wrapped[name] = wrapTool(eng, name, fn)
	}
	return wrapped
}

// Resources returns a copy of resources in which every capability reports
// each access to eng as a read. A string result contributes its length as
// bytes transferred.
func Resources(eng *monitor.Engine, resources map[string]Capability) map[string]Capability {
	wrapped := make(map[string]Capability, len(resources))
	for uri, fn := range resources {
		wrapped[uri] = wrapResource(eng, uri, fn)
	}
	return wrapped
}

// Prompts returns a copy of prompts in which every capability reports each
// evaluation to eng. A string result contributes its whitespace-delimited
// word count as tokens generated.
func Prompts(eng *monitor.Engine, prompts map[string]Capability) map[string]Capability {
	wrapped := make(map[string]Capability, len(prompts))
	for name, fn := range prompts {
		wrapped[name] = wrapPrompt(eng, name, fn)
	}
	return wrapped
}

func wrapTool(eng *monitor.Engine, name string, fn Capability) Capability {
	return func(ctx context.Context, args ...any) (any, error) {
		params := firstArg(args)
		start := time.Now()

		result, err := fn(ctx, args...)
		elapsed := elapsedMs(start)

		if err != nil {
			eng.RecordToolCall(monitor.ToolCall{
				ToolName:   name,
				Params:     params,
				Status:     monitor.StatusError,
				DurationMs: &elapsed,
				Error:      err.Error(),
			})
			return result, err
		}

		eng.RecordToolCall(monitor.ToolCall{
			ToolName:   name,
			Params:     params,
			Result:     result,
			Status:     monitor.StatusSuccess,
			DurationMs: &elapsed,
		})
		return result, nil
	}
}

func wrapResource(eng *monitor.Engine, uri string, fn Capability) Capability {
	return func(ctx context.Context, args ...any) (any, error) {
		start := time.Now()

		result, err := fn(ctx, args...)
		elapsed := elapsedMs(start)

		if err != nil {
			eng.RecordResourceAccess(monitor.ResourceAccess{
				URI:        uri,
				Operation:  monitor.ResourceOpRead,
				Status:     monitor.StatusError,
				DurationMs: &elapsed,
				Error:      err.Error(),
			})
			return result, err
		}

		var bytes int64
		if s, ok := result.(string); ok {
			bytes = int64(len(s))
		}
		eng.RecordResourceAccess(monitor.ResourceAccess{
			URI:              uri,
			Operation:        monitor.ResourceOpRead,
			BytesTransferred: bytes,
			Status:           monitor.StatusSuccess,
			DurationMs:       &elapsed,
		})
		return result, nil
	}
}

func wrapPrompt(eng *monitor.Engine, name string, fn Capability) Capability {
	return func(ctx context.Context, args ...any) (any, error) {
		params := firstArg(args)
		start := time.Now()

		result, err := fn(ctx, args...)
		elapsed := elapsedMs(start)

		if err != nil {
			eng.RecordPromptCall(monitor.PromptCall{
				PromptName: name,
				Args:       params,
				Status:     monitor.StatusError,
				DurationMs: &elapsed,
				Error:      err.Error(),
			})
			return result, err
		}

		var tokens int64
		if s, ok := result.(string); ok {
			tokens = int64(len(strings.Fields(s)))
		}
		eng.RecordPromptCall(monitor.PromptCall{
			PromptName:      name,
			Args:            params,
			TokensGenerated: tokens,
			Status:          monitor.StatusSuccess,
			DurationMs:      &elapsed,
		})
		return result, nil
	}
}

func firstArg(args []any) any {
	if len(args) > 0 {
		return args[0]
	}
	return map[string]any{}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
