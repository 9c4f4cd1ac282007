package brokerclient

import "fmt"

// QueueSummary mirrors internal/adminapi/handlers.queueSummary.
type QueueSummary struct {
	Name  string            `json:"name"`
	Stats map[string]string `json:"stats"`
}

// ListQueues fetches every known queue and its stats snapshot.
func (c *Client) ListQueues() ([]QueueSummary, error) {
	var queues []QueueSummary
	if err := c.get("/queues", &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// GetQueue fetches the stats snapshot for one named queue.
func (c *Client) GetQueue(name string) (*QueueSummary, error) {
	var q QueueSummary
	if err := c.get(fmt.Sprintf("/queues/%s", name), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Flush unconditionally discards every item in one queue.
func (c *Client) Flush(name string) error {
	return c.post(fmt.Sprintf("/queues/%s/flush", name), nil)
}

// FlushExpired discards expired items in one queue, returning how many.
func (c *Client) FlushExpired(name string) (int, error) {
	var out struct {
		Flushed int `json:"flushed"`
	}
	if err := c.post(fmt.Sprintf("/queues/%s/flush_expired", name), &out); err != nil {
		return 0, err
	}
	return out.Flushed, nil
}

// FlushAll unconditionally discards every item in every queue.
func (c *Client) FlushAll() error {
	return c.post("/flush_all", nil)
}
