package domain

// ScrapeResult status values. The pending status is only ever assigned by
// the dispatcher while an asynchronous task group is in flight; the other
// three are terminal and never change once set.
const (
	StatusPending    = "pending"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusFailedTask = "failed_task"
)

// ScrapeRequest is one URL selected for scraping, paired with its position
// in the search-result list so the caller can thread results back into the
// right slots regardless of completion order.
type ScrapeRequest struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
}

// ScrapeResult is the outcome of scraping one requested URL.
type ScrapeResult struct {
	Link       string `json:"link"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Index      int    `json:"index"`
	TokenCount int    `json:"token_count"`
	Error      string `json:"error,omitempty"`
}

// Terminal reports whether the result has reached a state that will never
// change again.
func (r ScrapeResult) Terminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailed || r.Status == StatusFailedTask
}

// TotalTokens sums the token counts of successful results. Failed and
// pending entries contribute nothing to the downstream LLM context budget.
func TotalTokens(results []ScrapeResult) int {
	total := 0
	for _, r := range results {
		if r.Status == StatusSuccess {
			total += r.TokenCount
		}
	}
	return total
}

// DispatchOutcome is what a dispatch call hands back to the web layer:
// either a fully terminal result set (Pending false, no group), or pending
// placeholders plus the group id to poll with.
type DispatchOutcome struct {
	Results []ScrapeResult
	GroupID string
	Pending bool
}

// ScrapeJobMessage is the queue payload for one asynchronous scrape job.
type ScrapeJobMessage struct {
	GroupID   string `json:"group_id"`
	ContextID string `json:"context_id"`
	URL       string `json:"url"`
	Index     int    `json:"index"`
}

// JobResult is a raw job outcome as fetched from the result backend. Workers
// write well-formed results, but nothing upstream guarantees that: fields may
// be missing or of the wrong type, so consumers extract them defensively.
type JobResult map[string]interface{}

// String returns the named field if it is present and a string.
func (j JobResult) String(key string) (string, bool) {
	v, ok := j[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the named field if it is present and numeric. JSON decoding
// yields float64 for numbers, so both are accepted.
func (j JobResult) Int(key string) (int, bool) {
	switch v := j[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
