// Package artifact persists analyzer parameters so that training and serving
// read byte-identical transform inputs. The persisted layout is a stable,
// versioned JSON envelope; consumers reject mismatched versions instead of
// silently reinterpreting fields.
package artifact

import (
	"context"
	"errors"

	"github.com/featuremill/featuremill/internal/domain/params"
)

// ErrNotFound signals that no persisted parameters exist under a name.
var ErrNotFound = errors.New("analyzer params not found")

// Store is the persistence contract for analyzer parameters.
type Store interface {
	// Save persists the parameters under a name, overwriting any previous run.
	Save(ctx context.Context, name string, p params.Params) error
	// Load retrieves previously persisted parameters, or ErrNotFound.
	Load(ctx context.Context, name string) (params.Params, error)
}
