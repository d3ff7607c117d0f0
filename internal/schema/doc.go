// Package schema validates YAML documents against the JSON Schemas embedded
// in this package: the store configuration, each definition kind of the
// canonical model (rule, skill, workflow, preset), and provider descriptors.
// Documents are decoded with yaml.v3, normalized to JSON values, and checked
// with santhosh-tekuri/jsonschema. Issues are collected, not fail-fast, so a
// single run reports every problem in a file.
package schema
