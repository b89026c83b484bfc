package domain

// CustomerContext is what the commerce backend knows about a sender.
type CustomerContext struct {
	CustomerID     string       `json:"customer_id"`
	Name           string       `json:"name,omitempty"`
	ComplaintCount int          `json:"complaint_count"`
	VIP            bool         `json:"vip_status"`
	RecentIssues   int          `json:"recent_issues"`
	Segment        string       `json:"segment,omitempty"`
	PastOrders     [][]CartLine `json:"past_orders,omitempty"`

	// Weather at the delivery address as reported by the backend ("chuva", "frio").
	Weather string `json:"weather,omitempty"`
}

// MenuItem is one sellable item of a store menu.
type MenuItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}
