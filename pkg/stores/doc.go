// Package stores provides durable persistence for generated configuration
// artifacts. The SQLite implementation writes each artifact atomically: the
// configuration text, target provider, derived project name, and save
// timestamp land together or not at all. A new artifact for the same project
// and provider replaces the previous one.
//
// The schema is managed with embedded migrations applied on startup.
package stores
