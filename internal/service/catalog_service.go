package service

import (
	"context"
	"strings"

	"schoollend/internal/domain"
	"schoollend/internal/models"

	"github.com/rs/zerolog"
)

type CatalogService struct {
	devices domain.DeviceRepository
	faq     []models.FAQEntry
	logger  *zerolog.Logger
}

func NewCatalogService(devices domain.DeviceRepository, faq []models.FAQEntry, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		devices: devices,
		faq:     faq,
		logger:  logger,
	}
}

func (s *CatalogService) ListDevices(ctx context.Context, q domain.DeviceQuery) ([]models.Device, error) {
	devices, err := s.devices.ListDevices(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Str("query", q.Text).Str("category", q.Category).Msg("failed to list devices")
		return nil, err
	}
	return devices, nil
}

func (s *CatalogService) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	return s.devices.GetDevice(ctx, id)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.devices.Categories(ctx)
}

// FAQ filters the help entries by question or answer, case-insensitively.
func (s *CatalogService) FAQ(query string) []models.FAQEntry {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.FAQEntry, 0, len(s.faq))
	for _, entry := range s.faq {
		if needle == "" ||
			strings.Contains(strings.ToLower(entry.Question), needle) ||
			strings.Contains(strings.ToLower(entry.Answer), needle) {
			out = append(out, entry)
		}
	}
	return out
}
