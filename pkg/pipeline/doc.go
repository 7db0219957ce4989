// Package pipeline implements the editable pipeline graph: a directed acyclic
// graph of stage nodes with ordering links. It supports interactive mutation
// (add, select, delete, clear), synthesis of an initial graph from a
// repository analysis, and serialization into the workflow representation
// submitted for configuration generation.
package pipeline
