package worker

// ChunkPayload is one text chunk inside a page.chunked event. Fields the
// splitter adds beyond these are ignored. Order is the splitter's 0-based
// position of the chunk within its page.
type ChunkPayload struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Order     int    `json:"order"`
	CharCount int    `json:"char_count,omitempty"`
}

// PageChunkedPayload is the body of a page.chunked event. PageNo is a
// pointer because pages are numbered from 0 and an absent field must not
// alias the first page.
type PageChunkedPayload struct {
	DocID         string         `json:"doc_id"`
	PageNo        *int           `json:"page_no"`
	Chunks        []ChunkPayload `json:"chunks"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// PageReadyPayload is the body of a page.ready event.
type PageReadyPayload struct {
	DocID         string `json:"doc_id"`
	PageNo        *int   `json:"page_no"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
