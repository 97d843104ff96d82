package domain

import "fmt"

const (
	// Context-store key patterns, scoped per context id
	ContextKeyResults   = "scrape:results:%s"
	ContextKeyTaskGroup = "scrape:group:%s"

	// Redis key patterns tracking one task group
	RedisKeyGroupTotal   = "group:%s:total"
	RedisKeyGroupDone    = "group:%s:done"
	RedisKeyGroupResults = "group:%s:results"

	// Placeholders for malformed job results
	UnknownLink  = "Unknown link"
	UnknownError = "Unknown error"
	UnknownIndex = -1

	// Content shown while an asynchronous group is in flight
	PendingContent = "Scraping in progress..."
)

// ResultsKey returns the context-store key holding the scrape results for a
// context.
func ResultsKey(contextID string) string {
	return fmt.Sprintf(ContextKeyResults, contextID)
}

// TaskGroupKey returns the context-store key holding the active task group
// id for a context.
func TaskGroupKey(contextID string) string {
	return fmt.Sprintf(ContextKeyTaskGroup, contextID)
}
