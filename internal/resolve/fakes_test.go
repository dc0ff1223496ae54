package resolve

import (
	"context"
	"sync"

	"github.com/sells-group/lotmap/pkg/geocode"
	"github.com/sells-group/lotmap/pkg/pkk"
)

type fakeRegistry struct {
	mu     sync.Mutex
	calls  int
	parcel *pkk.Parcel
	err    error
}

func (f *fakeRegistry) Lookup(_ context.Context, cadastral string) (*pkk.Parcel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.parcel == nil {
		return nil, pkk.ErrNotFound
	}
	p := *f.parcel
	p.CadastralNumber = cadastral
	return &p, nil
}

func (f *fakeRegistry) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGeocoder struct {
	mu      sync.Mutex
	queries []string
	result  *geocode.Result
	err     error
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &geocode.Result{Matched: false}, nil
	}
	r := *f.result
	return &r, nil
}

func (f *fakeGeocoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}
