package services

import (
	"github.com/stretchr/testify/mock"

	"github.com/irfndi/nftpulse/internal/outliers"
	"github.com/irfndi/nftpulse/internal/series"
)

// MockDetector implements outliers.Detector for testing within the services package
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(values []series.Value) []outliers.Outlier {
	args := m.Called(values)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]outliers.Outlier)
}
