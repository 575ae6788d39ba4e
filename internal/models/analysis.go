package models

// SVDRequest extracts up to MaxK basis vectors from N packed vectors.
type SVDRequest struct {
	Vectors []byte `json:"vectors"`
	N       int    `json:"n"`
	MaxK    int    `json:"max_k"`
}

// OrthogonalRequest projects Query onto the span of N packed candidates.
type OrthogonalRequest struct {
	Query      []byte `json:"query"`
	Candidates []byte `json:"candidates"`
	N          int    `json:"n"`
}

// HandshakeRequest measures Query against N packed references.
type HandshakeRequest struct {
	Query      []byte `json:"query"`
	References []byte `json:"references"`
	N          int    `json:"n"`
}

// SubspaceRequest projects Query minus Mean onto K packed basis vectors.
type SubspaceRequest struct {
	Query []byte `json:"query"`
	Basis []byte `json:"basis"`
	Mean  []byte `json:"mean"`
	K     int    `json:"k"`
}
