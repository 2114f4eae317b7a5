package orders

// Order is one order record as served by the upstream dashboard API.
type Order struct {
	ID     string `json:"id"`
	Item   string `json:"item"`
	Status string `json:"status"`
}
