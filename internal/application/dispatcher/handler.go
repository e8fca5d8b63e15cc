package dispatcher

import (
	"context"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

// Handler reacts to a claim event
type Handler func(ctx context.Context, evt *event.Event) error

type subscription struct {
	name    string
	handler Handler
}
