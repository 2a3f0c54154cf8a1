package domain

import "time"

// ChunkAttributes carries the document metadata attached to a corpus chunk
type ChunkAttributes struct {
	Brand           string
	ProductCategory string
	DocumentType    string
	FileName        string
}

// CorpusChunk is one indexed segment of the bulk document corpus (manuals,
// SOPs, FAQs). Chunks are immutable once indexed; the core reads them through
// similarity search only.
type CorpusChunk struct {
	ID         string
	Content    string
	Attributes ChunkAttributes
	Embedding  []float32
	CreatedAt  time.Time
}
