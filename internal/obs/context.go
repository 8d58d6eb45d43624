package obs

import "context"

type routeSlotKey struct{}

// routeSlot is shared by every middleware layer of a request so the pattern
// chi resolves deep in the router is visible to the outer layers.
type routeSlot struct {
	pattern string
}

// WithRoutePattern stores an explicit route pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routeSlotKey{}, &routeSlot{pattern: pattern})
}

// RoutePatternFromContext returns the recorded route pattern, if any.
func RoutePatternFromContext(ctx context.Context) string {
	if slot := slotFrom(ctx); slot != nil {
		return slot.pattern
	}
	return ""
}

func slotFrom(ctx context.Context) *routeSlot {
	if ctx == nil {
		return nil
	}
	slot, _ := ctx.Value(routeSlotKey{}).(*routeSlot)
	return slot
}
