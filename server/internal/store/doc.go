// Package store holds the most recently loaded status snapshot in memory
// and answers staleness questions about it.
package store
