package brokerclient

// Liveness is the decoded response body of GET /health.
type Liveness struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
}

// Liveness fetches the broker's liveness probe.
func (c *Client) Liveness() (*Liveness, error) {
	var l Liveness
	if err := c.get("/health", &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Status fetches the broker's up/readonly/quiescent state.
func (c *Client) Status() (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get("/health/status", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
