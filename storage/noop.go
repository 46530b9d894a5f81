package storage

import "context"

// NoopStorage remembers nothing.
type NoopStorage struct {
}

func (s *NoopStorage) WriteRun(ctx context.Context, r *RunRecord) error {
	return nil
}

func (s *NoopStorage) GetRun(ctx context.Context, model, id string) (*RunRecord, error) {
	return nil, NotFound
}

func (s *NoopStorage) ListRuns(ctx context.Context, model string) ([]*RunRecord, error) {
	return nil, nil
}

func (s *NoopStorage) Close() error {
	return nil
}
