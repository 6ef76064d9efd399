package sim

// Counter accumulates traffic totals across a run.
type Counter struct {
	Orders     int
	Items      int
	Revenue    float64
	Registered int
	Failures   int
}

// AddOrder records a fulfilled purchase.
func (c *Counter) AddOrder(items []OrderItem) {
	c.Orders++
	c.Items += len(items)
	for _, it := range items {
		c.Revenue += it.Price
	}
}
