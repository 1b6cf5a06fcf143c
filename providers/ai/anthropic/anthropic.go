package anthropic

import "github.com/leofalp/aibridge/providers/ai/sdkstyle"

// Name is the provider name.
const Name = "anthropic"

// New wraps client with the Anthropic presets. Caller options come last and
// may override them.
func New(client sdkstyle.Client, opts ...sdkstyle.Option) *sdkstyle.Provider {
	presets := []sdkstyle.Option{
		sdkstyle.WithContentFunc(Content),
		sdkstyle.WithFinishFunc(FinishReason),
	}
	return sdkstyle.New(Name, client, append(presets, opts...)...)
}
