package markrec

// Snapshot is the serialised DOM of a page after marking, so consumers
// can see which elements carry the class without a live browser.
type Snapshot struct {
	ID        string `json:"id"` // UUIDv7
	PageURL   string `json:"page_url"`
	PageID    string `json:"page_id"`
	HTML      []byte `json:"html"`
	HTMLHash  string `json:"html_hash"` // SHA-256 hex
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}
