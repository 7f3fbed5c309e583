package events

import (
	"context"
	"errors"

	"github.com/yigitselcuk/apptcal/internal/model"
)

var ErrClosed = errors.New("events: bus closed")

// Bus carries appointment change events between sessions. Every subscriber
// sees every published event, its own included.
type Bus interface {
	Publish(ctx context.Context, ev model.Event) error
	Subscribe(ctx context.Context, handler func(model.Event)) error
	Close() error
}
