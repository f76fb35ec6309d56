package orders

import (
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
)

// forward is the single-step fulfilment chain.
var forward = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:    enums.OrderStatusConfirmed,
	enums.OrderStatusConfirmed:  enums.OrderStatusProcessing,
	enums.OrderStatusProcessing: enums.OrderStatusShipped,
	enums.OrderStatusShipped:    enums.OrderStatusDelivered,
}

var cancellableFrom = map[enums.OrderStatus]bool{
	enums.OrderStatusPending:    true,
	enums.OrderStatusConfirmed:  true,
	enums.OrderStatusProcessing: true,
}

var refundableFrom = map[enums.OrderStatus]bool{
	enums.OrderStatusConfirmed:  true,
	enums.OrderStatusProcessing: true,
	enums.OrderStatusShipped:    true,
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() || from.IsTerminal() || from == to {
		return false
	}
	switch to {
	case enums.OrderStatusCancelled:
		return cancellableFrom[from]
	case enums.OrderStatusRefunded:
		return refundableFrom[from]
	default:
		return forward[from] == to
	}
}

// CheckTransition returns an INVALID_TRANSITION error when CanTransition is false.
func CheckTransition(from, to enums.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot change order status from "+from.String()+" to "+to.String()).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": AllowedTransitions(from),
		})
}

// AllowedTransitions lists every status reachable from the given one.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	allowed := []enums.OrderStatus{}
	for _, candidate := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusRefunded,
	} {
		if CanTransition(from, candidate) {
			allowed = append(allowed, candidate)
		}
	}
	return allowed
}
