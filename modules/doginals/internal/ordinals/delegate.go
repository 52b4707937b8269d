package ordinals

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrDelegateCycle is returned when a delegate chain loops or is longer than the allowed number of hops.
var ErrDelegateCycle = errors.New("unresolvable delegate")

// Content is what an inscription serves after delegate resolution.
type Content struct {
	ContentType     string
	ContentEncoding string
	Body            []byte
}

// InscriptionLookup returns the inscription with the given id, or an error wrapping errs.NotFound.
type InscriptionLookup func(ctx context.Context, id InscriptionId) (*Inscription, error)

// ResolveContent follows the delegate chain starting at id and returns the content of the first
// inscription that has no delegate. At most maxHops delegate links are followed.
func ResolveContent(ctx context.Context, id InscriptionId, lookup InscriptionLookup, maxHops int) (Content, error) {
	visited := make(map[InscriptionId]struct{}, max(maxHops, 0)+1)
	current := id
	for hops := 0; ; hops++ {
		if err := ctx.Err(); err != nil {
			return Content{}, errors.WithStack(err)
		}
		if _, ok := visited[current]; ok {
			return Content{}, errors.Wrapf(ErrDelegateCycle, "inscription %s is delegated to twice from %s", current, id)
		}
		visited[current] = struct{}{}

		inscription, err := lookup(ctx, current)
		if err != nil {
			return Content{}, errors.Wrapf(err, "failed to get inscription %s", current)
		}
		if !inscription.HasDelegate() {
			return Content{
				ContentType:     inscription.ContentType,
				ContentEncoding: inscription.ContentEncoding,
				Body:            inscription.Content,
			}, nil
		}
		if hops >= maxHops {
			return Content{}, errors.Wrapf(ErrDelegateCycle, "delegate chain from %s exceeds %d hops", id, maxHops)
		}
		current = *inscription.Delegate
	}
}
