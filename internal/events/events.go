package events

import (
	"time"

	"github.com/tuenti/mkdocs-elasticsearch/pkg/models"
)

// PreBuildEvent is sent before the documentation build starts.
type PreBuildEvent struct {
	Dirty     bool      // Incremental rebuild; search index is left alone
	Timestamp time.Time // When the build started
}

// PostBuildEvent is sent once the documentation build produced its entries.
type PostBuildEvent struct {
	Dirty   bool                 // Incremental rebuild; search index is left alone
	Entries []models.SearchEntry // Ordered search entries of the built site
	Err     error                // Set when the entries could not be produced
}
