package storage

import (
	"context"
	"sync"

	"salonlink.app/cloud/models"
)

type Database map[string]models.Profile

// Storage is the profile store. Lookups return (nil, nil) when no row matches.
type Storage interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	FindProfileByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error

	Close() error
}

type MemoryStorage struct {
	mutex    sync.RWMutex
	Profiles Database
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Profiles: make(Database)}
}

func (m *MemoryStorage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	profile, exists := m.Profiles[id]
	if !exists {
		return nil, nil
	}
	return &profile, nil
}

func (m *MemoryStorage) FindProfileByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if customerID == "" {
		return nil, nil
	}
	for _, profile := range m.Profiles {
		if profile.StripeCustomerID == customerID {
			profileCopy := profile
			return &profileCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) SaveProfile(ctx context.Context, profile *models.Profile) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Profiles == nil {
		m.Profiles = make(Database)
	}
	m.Profiles[profile.ID] = *profile
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
