// Package query provides symbolic constants for the queries the ledger runs
// on its database.
package query

import "fmt"

// ID represents a specific database query.
type ID uint8

const (
	RunAdd ID = iota
	RunFinish
	RunGetAll
	RunGetByID
	RunGetLatest
	TaskAdd
	TaskGetByRun
	TaskGetFailedByRun
	TaskGetByVideo
)

var idNames = [...]string{
	"RunAdd",
	"RunFinish",
	"RunGetAll",
	"RunGetByID",
	"RunGetLatest",
	"TaskAdd",
	"TaskGetByRun",
	"TaskGetFailedByRun",
	"TaskGetByVideo",
}

func (id ID) String() string {
	if int(id) < len(idNames) {
		return idNames[id]
	}
	return fmt.Sprintf("ID(%d)", id)
}
