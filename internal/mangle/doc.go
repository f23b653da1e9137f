// Package mangle turns item paths into linker symbol names.
//
// Names use the Itanium-like `_ZN<len><seg>...E` scheme: every segment is
// sanitized into the `[A-Za-z0-9_.$]` alphabet and prefixed by its byte
// length. Exported items additionally carry a type hash segment and a
// version segment so that distinct instantiations and crate versions never
// collide.
package mangle
