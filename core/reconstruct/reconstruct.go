package reconstruct

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/aibridge/core/cache"
	"github.com/leofalp/aibridge/core/normalize"
	"github.com/leofalp/aibridge/internal/utils"
	"github.com/leofalp/aibridge/providers/ai"
)

const (
	// CacheName is the Store cache holding reconstructed batch bodies.
	CacheName = "stream"
	// DefaultCacheTTL keeps reconstructed bodies briefly.
	DefaultCacheTTL = time.Minute
	// DefaultCacheSize bounds the number of cached bodies.
	DefaultCacheSize = 100

	// keyPrefixLength is how much of the body feeds the cache key.
	keyPrefixLength = 100
)

// Result is the accumulated outcome of a batch reconstruction. Terminal is the
// payload used for usage and model metadata and must be treated as read-only,
// since results are shared through the cache.
type Result struct {
	Content   string
	Terminal  map[string]any
	Fragments int
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithContentFunc sets the provider-specific content extractor consulted after
// the generic fields.
func WithContentFunc(content normalize.ContentFunc) Option {
	return func(r *Reconstructor) {
		r.content = content
	}
}

// WithRepair makes lines that look like truncated or sloppy JSON objects go
// through one jsonrepair attempt before being skipped.
func WithRepair() Option {
	return func(r *Reconstructor) {
		r.repair = true
	}
}

// WithCacheOptions overrides the options of the batch cache.
func WithCacheOptions(options cache.Options) Option {
	return func(r *Reconstructor) {
		r.cacheOptions = options
	}
}

// WithLogger sets the logger used for skipped-line diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconstructor) {
		r.logger = logger
	}
}

// Reconstructor accumulates fragments. It is safe for concurrent use.
type Reconstructor struct {
	cache        *cache.Cache
	cacheOptions cache.Options
	content      normalize.ContentFunc
	repair       bool
	logger       *slog.Logger
}

// New creates a Reconstructor caching batch results in store. A nil store
// disables caching.
func New(store *cache.Store, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		cacheOptions: cache.Options{MaxSize: DefaultCacheSize, TTL: DefaultCacheTTL},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if store != nil {
		r.cache = store.Create(CacheName, r.cacheOptions)
	}
	return r
}

// CacheKey identifies a body by a hash of its first 100 characters and its
// total length.
func CacheKey(body string) string {
	prefix := body
	if len(prefix) > keyPrefixLength {
		prefix = prefix[:keyPrefixLength]
	}
	sum := sha256.Sum256([]byte(prefix))
	return hex.EncodeToString(sum[:]) + ":" + strconv.Itoa(len(body))
}

// Reconstruct parses a complete body. A body that is one JSON object is both
// the only fragment and the terminal payload. Otherwise every line is parsed
// on its own, unparseable lines are skipped, content is appended in order and
// the last object with a completion marker becomes the terminal payload (the
// last parsed object when none has a marker). A body where nothing parses
// yields an empty Result. A cached Result is reused only for an identical body.
func (r *Reconstructor) Reconstruct(body string) Result {
	if r.cache == nil {
		return r.reconstruct(body)
	}

	key := CacheKey(body)
	digest := sha256.Sum256([]byte(body))
	if cached, ok := r.cache.Get(key); ok {
		if entry, ok := cached.(cachedResult); ok && entry.digest == digest {
			return entry.result
		}
	}

	result := r.reconstruct(body)
	r.cache.Set(key, cachedResult{digest: digest, result: result})
	return result
}

// cachedResult ties a cached Result to the full body it was built from, since
// CacheKey only looks at a prefix and the length.
type cachedResult struct {
	digest [sha256.Size]byte
	result Result
}

func (r *Reconstructor) reconstruct(body string) Result {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Result{}
	}

	var whole map[string]any
	if err := json.Unmarshal([]byte(trimmed), &whole); err == nil && whole != nil {
		return Result{
			Content:   normalize.ExtractContent(whole, r.content),
			Terminal:  whole,
			Fragments: 1,
		}
	}

	var (
		content  strings.Builder
		result   Result
		last     map[string]any
		terminal map[string]any
	)
	for _, line := range strings.Split(trimmed, "\n") {
		payload, ok := utils.PayloadLine(line)
		if !ok {
			continue
		}
		object, ok := r.parse(payload)
		if !ok {
			continue
		}

		result.Fragments++
		content.WriteString(normalize.ExtractContent(object, r.content))
		last = object
		if IsTerminal(object) {
			terminal = object
		}
	}

	if terminal == nil {
		terminal = last
	}
	result.Content = content.String()
	result.Terminal = terminal
	return result
}

// Live reads body until a completion marker, the end of the body or a read
// error. Each fragment with content yields a partial event carrying the
// fragment and the number of fragments so far; the completion marker yields
// exactly one complete event and ends the stream. If the body ends without a
// marker, a complete event is synthesized from what was accumulated. body is
// closed when the iterator returns.
func (r *Reconstructor) Live(ctx context.Context, body io.ReadCloser, normalizer *normalize.Normalizer, model string) *ai.ChatStream {
	iterator := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(body)

		scanner := utils.NewLineScanner(body)
		var (
			content   strings.Builder
			fragments int
			last      map[string]any
		)

		complete := func(terminal map[string]any) {
			response := normalizer.NormalizeContent(terminal, content.String(), model)
			yield(ai.StreamEvent{Type: ai.StreamEventComplete, Done: true, TokenCount: fragments, Response: response}, nil)
		}

		fail := func(err error) {
			yield(ai.StreamEvent{Type: ai.StreamEventError, Error: err.Error()}, err)
		}

		for {
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}

			line, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				complete(last)
				return
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					fail(ctxErr)
					return
				}
				fail(ai.NewTransportError(0, "stream read failed", err))
				return
			}

			object, ok := r.parse(line)
			if !ok {
				continue
			}
			last = object

			if fragment := normalize.ExtractContent(object, r.content); fragment != "" {
				content.WriteString(fragment)
				fragments++
				if !yield(ai.StreamEvent{Type: ai.StreamEventPartial, Fragment: fragment, TokenCount: fragments}, nil) {
					return
				}
			}

			if IsTerminal(object) {
				complete(object)
				return
			}
		}
	}

	return ai.NewChatStream(iterator)
}

// parse decodes one payload line into an object, trying jsonrepair once when
// enabled. Failures are reported as ok == false and never surface.
func (r *Reconstructor) parse(line string) (map[string]any, bool) {
	var object map[string]any
	err := json.Unmarshal([]byte(line), &object)
	if err == nil && object != nil {
		return object, true
	}

	if r.repair && strings.HasPrefix(line, "{") {
		repaired, repairErr := jsonrepair.JSONRepair(line)
		if repairErr == nil {
			object = nil
			if json.Unmarshal([]byte(repaired), &object) == nil && object != nil {
				return object, true
			}
		}
	}

	r.logger.Debug("skipping unparseable stream line", slog.String("line", utils.TruncateString(line, 80)))
	return nil, false
}

// IsTerminal reports whether object carries a completion marker: done or
// finished set to true, an Anthropic message_stop event, or a non-empty
// finish_reason on the first choice.
func IsTerminal(object map[string]any) bool {
	if done, _ := object["done"].(bool); done {
		return true
	}
	if finished, _ := object["finished"].(bool); finished {
		return true
	}
	if eventType, _ := object["type"].(string); eventType == "message_stop" {
		return true
	}
	choices, _ := object["choices"].([]any)
	if len(choices) == 0 {
		return false
	}
	choice, _ := choices[0].(map[string]any)
	reason, _ := choice["finish_reason"].(string)
	return reason != ""
}
