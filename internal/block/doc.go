// Package block implements the managed-region codecs: how the engine's
// content is placed into a target file and read back out of it.
//
// Overwrite targets are fully owned. Merge targets in markdown and text
// own only marker-delimited blocks:
//
//	<!-- agentsync:begin rule.r1 -->
//	...
//	<!-- agentsync:end rule.r1 -->
//
// TOML uses "# agentsync:begin" comment markers and keeps its block at the
// top of the file. JSON (including JSONC input) and YAML own a set of
// top-level keys. Everything outside the owned region is preserved.
package block
