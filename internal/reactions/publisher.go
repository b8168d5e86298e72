package reactions

import (
	"context"
	"errors"
)

// Publishers fans an event out to every non-nil publisher and joins their errors.
type Publishers []EventPublisher

func (p Publishers) PublishReaction(ctx context.Context, event Event) error {
	var errs []error
	for _, publisher := range p {
		if publisher == nil {
			continue
		}
		if err := publisher.PublishReaction(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
