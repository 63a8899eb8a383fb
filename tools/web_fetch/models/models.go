package models

type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Status  int    `json:"status,omitempty"`
	FetchMS int    `json:"fetch_ms,omitempty"`
	Error   string `json:"error,omitempty"`
}
