package types

// QueryRequest is the canonical shape behind findDefinition/findReferences.
// Field order here does not matter for hashing — the cache package writes
// each field into the hash in a fixed order of its own — but it does
// matter for equality: two requests equal modulo RequestID/timestamp must
// hash identically.
type QueryRequest struct {
	Operation          string   `json:"operation"`
	Identifier         string   `json:"identifier"`
	URI                FileUri  `json:"uri"`
	Position           Position `json:"position"`
	MaxResults         int      `json:"maxResults"`
	IncludeDeclaration bool     `json:"includeDeclaration"`
	Precise            bool     `json:"precise"`
	ASTOnly            bool     `json:"astOnly"`
	Conceptual         bool     `json:"conceptual"`
	NewName            string   `json:"newName,omitempty"`
	DryRun             bool     `json:"dryRun,omitempty"`
}

// Normalized returns a copy with the URI mapped to the canonical form
// used for cache-key derivation.
func (r QueryRequest) Normalized() QueryRequest {
	r.URI = Normalize(string(r.URI))
	if r.MaxResults <= 0 {
		r.MaxResults = 100
	}
	return r
}

// RenameRequest parametrizes prepareRename/rename.
type RenameRequest struct {
	URI        FileUri  `json:"uri"`
	Position   Position `json:"position"`
	Identifier string   `json:"identifier"`
	NewName    string   `json:"newName"`
	DryRun     bool     `json:"dryRun"`
}

// PrepareRenameResult is returned by prepareRename.
type PrepareRenameResult struct {
	Range       Range  `json:"range"`
	Placeholder string `json:"placeholder"`
}

// ExploreRequest parametrizes exploreCodebase.
type ExploreRequest struct {
	Identifier         string  `json:"identifier"`
	URI                FileUri `json:"uri,omitempty"`
	IncludeDeclaration bool    `json:"includeDeclaration"`
	MaxResults         int     `json:"maxResults"`
	Precise            bool    `json:"precise"`
	Conceptual         bool    `json:"conceptual"`
}

// ExplorePerformance mirrors Performance but tracks the two concurrent
// sub-queries exploreCodebase fans out to.
type ExplorePerformance struct {
	Definitions int64 `json:"definitions"`
	References  int64 `json:"references"`
	Total       int64 `json:"total"`
}

// ExploreResult is the combined view exploreCodebase returns.
type ExploreResult struct {
	Symbol      string              `json:"symbol"`
	ContextURI  FileUri             `json:"contextUri,omitempty"`
	Definitions []Definition        `json:"definitions"`
	References  []Reference         `json:"references"`
	Performance ExplorePerformance  `json:"performance"`
}

// SymbolMapRequest parametrizes buildSymbolMap.
type SymbolMapRequest struct {
	Identifier string  `json:"identifier"`
	URI        FileUri `json:"uri,omitempty"`
	MaxFiles   int     `json:"maxFiles"`
	ASTOnly    bool    `json:"astOnly"`
}
