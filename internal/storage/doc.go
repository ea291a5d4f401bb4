// Package storage persists normalized articles. All backends implement the
// Database contract; the relational backend additionally supports duplicate
// resolution by entry date and incremental merge from a previous run.
package storage
