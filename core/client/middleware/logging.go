package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/aibridge/core/client"
	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs operation, model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and the finish reason.
	LogLevelStandard

	// LogLevelVerbose adds the last message text and the response content,
	// each truncated. It logs raw prompt and response text: local debugging only.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose output.
const truncateLen = utils.DefaultPreviewLength

// NewLoggingMiddleware logs every send and stream call on logger.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	if logger == nil {
		logger = slog.Default()
	}
	return client.MiddlewareConfig{
		Send:   buildSendLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildSendLogging(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.Response, error) {
			operation := client.OperationFromContext(ctx)
			logger.InfoContext(ctx, "llm send", buildRequestAttrs(operation, request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed",
					slog.String("operation", operation),
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed", buildResponseAttrs(operation, response, elapsed, level)...)
			return response, nil
		}
	}
}

func buildStreamLogging(logger *slog.Logger, level LogLevel) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			operation := client.OperationFromContext(ctx)
			logger.InfoContext(ctx, "llm stream", buildRequestAttrs(operation, request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("operation", operation),
					slog.String("model", request.Model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil, err
			}

			return wrapStreamWithLogging(ctx, stream, logger, operation, request.Model, level, start), nil
		}
	}
}

// wrapStreamWithLogging logs once when the stream completes, fails or is
// abandoned by the caller.
func wrapStreamWithLogging(
	ctx context.Context,
	stream *ai.ChatStream,
	logger *slog.Logger,
	operation string,
	model string,
	level LogLevel,
	start time.Time,
) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		fragments := 0
		for event, err := range stream.Iter() {
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("operation", operation),
					slog.String("model", model),
					slog.Int("fragments", fragments),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventPartial:
				fragments++
			case ai.StreamEventComplete:
				if event.Response != nil {
					attrs := buildResponseAttrs(operation, event.Response, time.Since(start), level)
					attrs = append(attrs, slog.Int("fragments", fragments))
					logger.InfoContext(ctx, "llm stream completed", attrs...)
				}
				yield(event, nil)
				return
			}

			if !yield(event, nil) {
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("operation", operation),
					slog.String("model", model),
					slog.Int("fragments", fragments),
					slog.Duration("duration", time.Since(start)),
				)
				return
			}
		}

		logger.InfoContext(ctx, "llm stream completed",
			slog.String("operation", operation),
			slog.String("model", model),
			slog.Int("fragments", fragments),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func buildRequestAttrs(operation string, request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("model", request.Model),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		attrs = append(attrs,
			slog.String("last_message_role", string(last.Role)),
			slog.String("last_message_content", utils.TruncateString(last.Text(), truncateLen)),
		)
	}

	return attrs
}

func buildResponseAttrs(operation string, response *ai.Response, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("provider", response.Provider),
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
		slog.Int("input_tokens", response.Usage.InputTokens),
		slog.Int("output_tokens", response.Usage.OutputTokens),
		slog.Int("total_tokens", response.Usage.Total()),
	}

	if level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
	}

	return attrs
}
