// Package core holds the custody domain types, configuration, error kinds and
// the activity dispatcher. Crypto and transport adapters depend on this
// package; core depends on them only through the Stamper and Transport
// interfaces.
package core
