// Package calcdata computes derived rating values. Every (game, playtype)
// pair has a fixed key set; a computed result always carries every key,
// with an explicit null where the rating does not apply to the play.
package calcdata
