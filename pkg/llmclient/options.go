package llmclient

import "time"

type Option func(*Client)

func BaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func Timeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}
