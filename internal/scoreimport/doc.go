// Package scoreimport is the import pipeline's conductor. One call to
// Importer.Run takes a raw import request end to end: parse, convert,
// dedup, persist, session placement, personal best rebuild, and the user's
// aggregate stats, goals and milestones, finishing with a persisted import
// document describing everything that happened.
package scoreimport
