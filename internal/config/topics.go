package config

const (
	// TopicIngestPDF carries one event per newly created document; consumed
	// by the external page splitter.
	TopicIngestPDF = "ingest.pdf"

	// TopicPageChunked carries per-page chunk batches produced by the
	// splitter; consumed by the embedding worker.
	TopicPageChunked = "page.chunked"

	// TopicPageReady signals that a page finished the full split/normalize
	// pass; consumed by the completion tracker.
	TopicPageReady = "page.ready"
)

const (
	ChannelEmbedder   = "embedder"
	ChannelCompletion = "completion"
)
