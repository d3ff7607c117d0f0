// Package provider describes the AI tools the engine renders for. Each tool
// is a Descriptor: an id, a category, and the target files it reads, with
// their format and ownership strategy. Adding a tool means adding a
// descriptor, never engine code.
//
// The built-in catalog is embedded (providers.yaml) and versioned with
// semver; a control store can add or replace descriptors by dropping
// providers/*.yaml files next to store.yaml.
package provider
