package riders

// Rider is one courier record as served by the upstream dashboard API.
type Rider struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	AssignedOrderID string `json:"assignedOrderId,omitempty"`
}
