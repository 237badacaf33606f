package queue

import (
	"context"
	"errors"

	"github.com/pders01/reviewq/internal/debuglog"
)

// Deleter retires an item so it leaves the review queue.
type Deleter interface {
	Retire(ctx context.Context, identifier string) error
}

var errNoIdentifier = errors.New("no item selected")

// Remove issues the retire request. Callers bump the Session's change
// signal only when it succeeds.
func Remove(ctx context.Context, d Deleter, identifier string) error {
	if identifier == "" {
		return errNoIdentifier
	}

	err := d.Retire(ctx, identifier)
	retiresTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		debuglog.Errorf("Retire %s failed: %v", identifier, err)
		return err
	}

	debuglog.Infof("Retired %s", identifier)
	return nil
}
