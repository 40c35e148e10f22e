package catalog

import (
	"context"

	id "admissio/pkg/domain"
)

// Store is the read boundary for call and career facts.
type Store interface {
	GetCall(ctx context.Context, callID id.CallID) (*AdmissionCall, error)
	ListCalls(ctx context.Context) ([]*AdmissionCall, error)
}

// ParamsStore holds the single global Params record.
type ParamsStore interface {
	Get(ctx context.Context) (*Params, error)
	Save(ctx context.Context, params *Params) error
}
