// Package model contains the domain types shared across the client.
// Pure data with no transport or persistence coupling; the wire-shape
// variance of the document store is confined to wire.go so that nothing
// downstream ever guesses field names.
package model
