package storage

import "itinerary-scraper/models"

// ManifestWriter is the interface any manifest sink must satisfy.
type ManifestWriter interface {
	Write(m *models.Manifest) error
	Close() error
}
