// Package reconstruct turns response bodies made of zero, one or many
// newline-delimited JSON fragments into one logical response.
//
// Batch mode ([Reconstructor.Reconstruct]) works on a complete body returned
// by a non-streaming call. Live mode ([Reconstructor.Live]) reads a chunked
// body as it arrives and yields ordered partial events followed by exactly one
// complete event.
//
// A line that fails to parse is skipped and scanning continues; reconstruction
// never fails because of malformed input. Fragments are accumulated forward in
// arrival order.
package reconstruct
