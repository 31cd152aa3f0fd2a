// Package games defines the closed set of supported games and playtypes,
// together with the per-(game, playtype) configuration every other package
// dispatches on: grade and lamp orderings, rating key sets, and class
// orderings. Adding a game means extending the tables here; every consumer
// switches exhaustively over this set so an unknown pair surfaces as a
// configuration error rather than a silent nil lookup.
package games
