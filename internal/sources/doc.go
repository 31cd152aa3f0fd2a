// Package sources defines the contract every import source implements: a
// parser that turns raw input into a lazy sequence of source-native records
// plus shared batch context, and a converter that validates one record,
// resolves it against the song/chart catalog and produces a dry score. The
// typed failure taxonomy converters report through lives here too.
//
// Parsers handle shape and transport concerns only (pagination, CSV column
// splitting); business validation belongs to converters. Each source lives
// in its own subpackage and is wired into the orchestrator's registry.
package sources
