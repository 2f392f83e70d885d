package observability

import (
	"context"
	"time"

	"github.com/kasugai-cloud/aichat/pkg/providers"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// InstrumentKV wraps a KV store so every operation feeds the storage
// counters and duration histogram. A nil Metrics returns the store
// unwrapped.
func InstrumentKV(m *Metrics, backend string, kv storage.KVStore) storage.KVStore {
	if m == nil {
		return kv
	}
	return &instrumentedKV{inner: kv, m: m, backend: backend}
}

type instrumentedKV struct {
	inner   storage.KVStore
	m       *Metrics
	backend string
}

func (s *instrumentedKV) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.m.StorageOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
	s.m.StorageOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
}

func (s *instrumentedKV) Put(ctx context.Context, item storage.Item) error {
	start := time.Now()
	err := s.inner.Put(ctx, item)
	s.observe("put", start, err)
	return err
}

func (s *instrumentedKV) Get(ctx context.Context, pk, sk string) (storage.Item, error) {
	start := time.Now()
	item, err := s.inner.Get(ctx, pk, sk)
	s.observe("get", start, err)
	return item, err
}

func (s *instrumentedKV) Query(ctx context.Context, in storage.QueryInput) ([]storage.Item, error) {
	start := time.Now()
	items, err := s.inner.Query(ctx, in)
	s.observe("query", start, err)
	return items, err
}

func (s *instrumentedKV) Update(ctx context.Context, in storage.UpdateInput) error {
	start := time.Now()
	err := s.inner.Update(ctx, in)
	s.observe("update", start, err)
	return err
}

func (s *instrumentedKV) BatchDelete(ctx context.Context, keys []storage.Key) error {
	start := time.Now()
	err := s.inner.BatchDelete(ctx, keys)
	s.observe("batch_delete", start, err)
	return err
}

// InstrumentBlob wraps a blob store with the same storage metrics.
func InstrumentBlob(m *Metrics, backend string, blobs storage.BlobStore) storage.BlobStore {
	if m == nil {
		return blobs
	}
	return &instrumentedBlob{inner: blobs, m: m, backend: backend}
}

type instrumentedBlob struct {
	inner   storage.BlobStore
	m       *Metrics
	backend string
}

func (s *instrumentedBlob) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.m.StorageOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
	s.m.StorageOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
}

func (s *instrumentedBlob) Put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	err := s.inner.Put(ctx, key, data, contentType)
	s.observe("blob_put", start, err)
	return err
}

func (s *instrumentedBlob) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := s.inner.Get(ctx, key)
	s.observe("blob_get", start, err)
	return data, err
}

func (s *instrumentedBlob) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.observe("blob_delete", start, err)
	return err
}

func (s *instrumentedBlob) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.inner.List(ctx, prefix)
	s.observe("blob_list", start, err)
	return keys, err
}

// InstrumentInvoker wraps a provider adapter so invocations feed the
// provider counters and duration histogram. The provider label is fixed
// at wiring time; the model label comes from each request.
func InstrumentInvoker(m *Metrics, provider string, inner providers.Invoker) providers.Invoker {
	if m == nil {
		return inner
	}
	return &instrumentedInvoker{inner: inner, m: m, provider: provider}
}

type instrumentedInvoker struct {
	inner    providers.Invoker
	m        *Metrics
	provider string
}

func (i *instrumentedInvoker) Invoke(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	start := time.Now()
	resp, err := i.inner.Invoke(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.m.ProviderInvocationsTotal.WithLabelValues(i.provider, req.ModelID, status).Inc()
	i.m.ProviderInvocationSeconds.WithLabelValues(i.provider, req.ModelID).Observe(time.Since(start).Seconds())
	return resp, err
}
