package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
		wantK   int
	}{
		{"empty query", &SearchQuery{}, true, 0},
		{"sets default k", &SearchQuery{Query: []byte{0, 0, 0, 0}}, false, DefaultK},
		{"keeps explicit k", &SearchQuery{Query: []byte{0, 0, 0, 0}, K: 3}, false, 3},
		{"caps k", &SearchQuery{Query: []byte{0, 0, 0, 0}, K: 5000}, false, MaxK},
		{"keeps negative k", &SearchQuery{Query: []byte{0, 0, 0, 0}, K: -1}, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.K != tt.wantK {
				t.Errorf("k = %d, want %d", tt.query.K, tt.wantK)
			}
		})
	}
}

func TestInputs_Validate(t *testing.T) {
	if err := (&VectorInput{ID: 1}).Validate(); err == nil {
		t.Error("vector input without vector should fail")
	}
	if err := (&VectorInput{ID: 1, Vector: []byte{1, 2, 3, 4}}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&BatchInput{}).Validate(); err == nil {
		t.Error("empty batch should fail")
	}
	if err := (&BatchInput{IDs: []uint32{1}}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
