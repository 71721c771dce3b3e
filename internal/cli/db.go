package cli

import (
	"fmt"
	"os"

	"github.com/roach88/replaycheck/internal/store"
)

// openExisting opens a database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %s", path)
	}
	return store.Open(path)
}
