// Package types defines the pantry and shopping-list entities, the
// DocumentStore interface that every storage backend implements, and the
// standard errors shared by the storage and repository layers.
package types
