// Package model is the canonical, provider-agnostic description of what AI
// agents should know about a repository: rules, skills, workflows, and the
// presets that bundle them. Definitions live as YAML files in the control
// store (rules/, skills/, workflows/, presets/) next to store.yaml, which
// selects providers, projects, and the active entries.
//
// Load reads and schema-checks every file; Validate checks cross-references
// and aggregates every problem into one ValidationError. Nothing downstream
// runs on a model that failed validation. Loaded values are never mutated;
// a reload builds new ones.
package model
