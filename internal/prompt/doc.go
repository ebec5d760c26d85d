// Package prompt rewrites the attention weighting syntax of user prompts into
// the canonical form understood by the generation backend: "(words)+++" for
// emphasis, "(words)--" for de-emphasis and "(words)1.3" for explicit weights.
//
// Normalize is idempotent. Prompts that already use the canonical syntax, or
// backend directives such as .blend() and .swap(), are returned untouched.
package prompt
