// Package forkx forks the calling process without exec and reports which
// side of the fork the caller is on.
package forkx

// Role tells the caller which branch of a fork it is running in.
type Role int

const (
	Parent Role = iota
	Child
)

func (r Role) String() string {
	switch r {
	case Parent:
		return "parent"
	case Child:
		return "child"
	default:
		return "unknown"
	}
}
