// Package logdomain provides constants for log sources.
package logdomain

// ID represents a log source
type ID uint8

// These constants signify the various parts of the application.
const (
	Common ID = iota
	Catalog
	Fetch
	Transcode
	Ledger
	Dataset
	Trainer
	Inference
	CLI
)

var domainNames = [...]string{
	Common:    "Common",
	Catalog:   "Catalog",
	Fetch:     "Fetch",
	Transcode: "Transcode",
	Ledger:    "Ledger",
	Dataset:   "Dataset",
	Trainer:   "Trainer",
	Inference: "Inference",
	CLI:       "CLI",
}

// String returns the name of the log source.
func (id ID) String() string {
	if int(id) < len(domainNames) {
		return domainNames[id]
	}
	return "Unknown"
}

// Valid returns true if id is one of the known log sources.
func (id ID) Valid() bool {
	return int(id) < len(domainNames)
}

// AllDomains returns a slice of all the known log sources.
func AllDomains() []ID {
	return []ID{
		Common,
		Catalog,
		Fetch,
		Transcode,
		Ledger,
		Dataset,
		Trainer,
		Inference,
		CLI,
	}
} // func AllDomains() []ID
