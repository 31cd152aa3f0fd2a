// Package userstats maintains each user's per-(game, playtype) aggregate
// state: profile ratings recomputed from their personal bests, class
// values, and goal and milestone progress. It runs at the tail of every
// import, after personal bests have been rebuilt.
package userstats
