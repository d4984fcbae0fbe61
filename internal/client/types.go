package client

// HostInfo mirrors the producer's /api/host response.
type HostInfo struct {
	Hostname       string  `json:"hostname"`
	OS             string  `json:"os"`
	Platform       string  `json:"platform"`
	CPUs           int     `json:"cpus"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemTotal       uint64  `json:"memTotal"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	Load1          float64 `json:"load1"`
	UptimeSeconds  uint64  `json:"uptimeSeconds"`
	ActiveStreams  int     `json:"activeStreams"`
}

// Health mirrors the producer's /healthz response.
type Health struct {
	Status        string `json:"status"`
	ActiveStreams int    `json:"activeStreams"`
	MaxStreams    int    `json:"maxStreams"`
}
