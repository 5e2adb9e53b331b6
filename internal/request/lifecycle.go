package request

import "fmt"

// statusTransitions is the complete set of legal status moves. APPROVED and
// DENIED are terminal and have no entries.
var statusTransitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview, StatusApproved, StatusDenied},
	StatusUnderReview: {StatusApproved, StatusDenied},
}

// CanTransition reports whether the status move from -> to is legal.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		if from.Terminal() {
			return fmt.Errorf("%w: request is already %s", ErrGuardViolation, from)
		}
		return fmt.Errorf("%w: cannot move %s request to %s", ErrGuardViolation, from, to)
	}
	return nil
}

// NextFulfillment returns the fulfillment stage that follows cur.
// The progression is strictly PENDING -> PROCESSING -> SHIPPED.
func NextFulfillment(cur FulfillmentStatus) (FulfillmentStatus, bool) {
	switch cur {
	case FulfillmentPending:
		return FulfillmentProcessing, true
	case FulfillmentProcessing:
		return FulfillmentShipped, true
	default:
		return "", false
	}
}

// Audit action strings. These are stable wire values: reports and the record
// document reproduce them verbatim.
const (
	auditSubmitted          = "Request submitted by student"
	auditFulfillmentEntered = "Fulfillment information submitted"
	auditDocumentGenerated  = "Record document generated"
)

func auditStatusChanged(from, to Status) string {
	return fmt.Sprintf("Status changed: %s -> %s", from, to)
}

func auditFulfillmentChanged(from, to FulfillmentStatus) string {
	return fmt.Sprintf("Fulfillment status changed: %s -> %s", from, to)
}
