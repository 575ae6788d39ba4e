package models

// SearchResult is a single hit; Score is 1 minus the squared L2 distance.
type SearchResult struct {
	ID    uint32  `json:"id"`
	Score float64 `json:"score"`
}

// SearchResponse is the response for a search request, ordered by descending score.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	QueryTime int64          `json:"query_time_ms"`
}

// BatchResponse reports how many vectors a batch insert added.
type BatchResponse struct {
	Inserted int `json:"inserted"`
}

// StatsResponse is the shape of GET /api/v1/stats.
type StatsResponse struct {
	Count          int    `json:"count"`
	Dimensions     int    `json:"dimensions"`
	Capacity       int    `json:"capacity"`
	MemoryUsage    int64  `json:"memory_usage"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
	IndexType      string `json:"index_type,omitempty"`
	IndexPath      string `json:"index_path,omitempty"`
}

// SaveResponse names the file an index was written to.
type SaveResponse struct {
	Path string `json:"path"`
}

// RecoverResponse summarises a bulk recovery.
type RecoverResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
