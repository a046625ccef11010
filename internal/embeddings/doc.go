// Package embeddings provides embedding generation via multiple providers.
//
// Two providers are supported: FastEmbed (local ONNX models, requires CGO)
// and a deterministic hash-based provider that needs no model downloads.
// Providers are selected once at construction; call sites never branch on
// environment state.
package embeddings
