package models

type NeighborhoodStat struct {
	Neighborhood string `json:"neighborhood"`
	Orders       int    `json:"orders"`
	Bags         int    `json:"bags"`
	Revenue      int64  `json:"revenue"` // cents, settled orders only
}

type YearReport struct {
	Year          int                `json:"year"`
	OrderCount    int                `json:"order_count"`
	SettledCount  int                `json:"settled_count"`
	BagsSold      int                `json:"bags_sold"`
	OrderRevenue  int64              `json:"order_revenue"`  // cents
	DonationTotal int64              `json:"donation_total"` // cents
	DonationCount int                `json:"donation_count"`
	Neighborhoods []NeighborhoodStat `json:"neighborhoods"`
}
