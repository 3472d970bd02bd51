package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gridexport/internal/exporter"
	"gridexport/pkg/contracts/domain"
)

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, grid domain.GridState, req domain.ExportRequest) (*exporter.Result, error) {
	args := m.Called(ctx, grid, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exporter.Result), args.Error(1)
}

func (m *MockExporter) Prepare(ctx context.Context, grid domain.GridState, req domain.ExportRequest) (*exporter.Prepared, error) {
	args := m.Called(ctx, grid, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exporter.Prepared), args.Error(1)
}

func (m *MockExporter) Formats() []domain.Format {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Format)
}

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Write(artifact *exporter.Artifact) (string, error) {
	args := m.Called(artifact)
	return args.String(0), args.Error(1)
}

type stubClients int

func (s stubClients) ClientCount() int { return int(s) }
