package stats

// DashboardStats holds the aggregate statistics shown in the stats panel.
type DashboardStats struct {
	Total      int
	BySeverity map[string]int // severity name -> alert count
	ByStatus   map[string]int // annotation status -> alert count
	Untriaged  int

	AvgConfidence   float64 // 0-1
	AvgAnomalyScore float64

	TopThreats []Count
	TopSources []Count
	TopPorts   []Count
}

// Count is one row of a frequency table.
type Count struct {
	Name  string
	Count int
}
