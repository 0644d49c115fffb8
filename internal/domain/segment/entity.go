// internal/domain/segment/entity.go
package segment

import "time"

// Label is one of the fixed customer segments.
type Label string

const (
	VIPCustomer       Label = "VIP_CUSTOMER"
	RegularCustomer   Label = "REGULAR_CUSTOMER"
	PotentialCustomer Label = "POTENTIAL_CUSTOMER"
	SupportSeeker     Label = "SUPPORT_SEEKER"
	PriceSensitive    Label = "PRICE_SENSITIVE"
	InactiveCustomer  Label = "INACTIVE_CUSTOMER"
	NewCustomer       Label = "NEW_CUSTOMER"
)

// Labels lists every segment in prompt order.
var Labels = []Label{
	VIPCustomer,
	RegularCustomer,
	PotentialCustomer,
	SupportSeeker,
	PriceSensitive,
	InactiveCustomer,
	NewCustomer,
}

var labelDescriptions = map[Label]string{
	VIPCustomer:       "high value, frequent and engaged customer",
	RegularCustomer:   "consistent customer with steady interaction",
	PotentialCustomer: "shows buying interest but has not committed yet",
	SupportSeeker:     "mainly contacts the business for help or complaints",
	PriceSensitive:    "focused on prices, discounts and offers",
	InactiveCustomer:  "has not interacted for a long time",
	NewCustomer:       "recently started interacting with the business",
}

// Description returns the human description used in the classifier prompt.
func (l Label) Description() string {
	return labelDescriptions[l]
}

// Valid reports whether l is one of the fixed labels.
func (l Label) Valid() bool {
	_, ok := labelDescriptions[l]
	return ok
}

// Result is the outcome of classifying one customer.
type Result struct {
	CustomerID      int64     `json:"customer_id"`
	Segment         Label     `json:"segment"`
	Confidence      float64   `json:"confidence"`
	Reasoning       string    `json:"reasoning"`
	Characteristics []string  `json:"characteristics"`
	Fallback        bool      `json:"fallback"`
	SegmentedAt     time.Time `json:"segmented_at"`
}

// Fallback constants applied when classifier output cannot be parsed.
const (
	FallbackConfidence = 0.5
	FallbackReasoning  = "Fallback segmentation: classifier output could not be parsed"
	FallbackTrait      = "parse_error"
)

// NewFallbackResult builds the fixed result used for unparseable classifier output.
func NewFallbackResult(customerID int64) *Result {
	return &Result{
		CustomerID:      customerID,
		Segment:         RegularCustomer,
		Confidence:      FallbackConfidence,
		Reasoning:       FallbackReasoning,
		Characteristics: []string{FallbackTrait},
		Fallback:        true,
	}
}
