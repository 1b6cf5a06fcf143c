// Package format holds the default collaborators that prepare caller messages
// before they reach a provider.
//
// [Formatter] validates roles and content, folds the Content shorthand into
// parts and converts HTML parts to Markdown. [Images] resolves image
// references: data URLs and http(s) URLs pass through, local files are read,
// sniffed and inlined as base64 data URLs.
package format
