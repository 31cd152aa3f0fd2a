// Package storage is the record store for the service: the song/chart
// reference catalog, canonical scores, personal bests, sessions, goals,
// milestones, per-user game stats and import documents, all persisted
// through gorm on sqlite. Per-game polymorphic data (judgements, hit
// metadata, calculated data, session score info) lives in JSON-serialized
// columns so the row shape stays fixed across games.
package storage
