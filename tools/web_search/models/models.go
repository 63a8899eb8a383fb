package models

import "fmt"

// ProviderError reports a non-200 answer from a search provider.
type ProviderError struct {
	Provider string
	Status   int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.Status)
}

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
