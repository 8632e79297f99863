package response

import "encoding/json"

type Register struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type Login struct {
	Token string `json:"token"`
}

type Image struct {
	ImageID      string `json:"image_id"`
	ContentType  string `json:"content_type"`
	ContentHash  string `json:"content_hash"`
	Size         int64  `json:"size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Deduplicated bool   `json:"deduplicated"`
	CreatedAt    string `json:"created_at"`
}

type Query struct {
	Result json.RawMessage `json:"result"`
	Cached bool            `json:"cached"`
}

type Usage struct {
	Calls       int64  `json:"calls"`
	FailedCalls int64  `json:"failed_calls"`
	UpdatedAt   string `json:"updated_at"`
}
