package models

// Node is one leaf of the data tree: a full slash-separated path and the
// JSON encoding of its scalar value.
type Node struct {
	Path  string
	Value string
}
