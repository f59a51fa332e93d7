package service

import (
	"context"
	"testing"

	"schoollend/internal/domain"
	"schoollend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService(t *testing.T) {
	faq := []models.FAQEntry{
		{Question: "Hoe kan ik een apparaat reserveren?", Answer: "Ga naar de catalogus."},
		{Question: "Hoe lang kan ik een apparaat lenen?", Answer: "Maximaal 14 dagen."},
	}
	svc := NewCatalogService(newDeviceRepo(t), faq, discardLogger())
	ctx := context.Background()

	t.Run("ListDevices", func(t *testing.T) {
		got, err := svc.ListDevices(ctx, domain.DeviceQuery{Text: "CANON"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.BadgeAvailable, got[0].Badge())
	})

	t.Run("Categories", func(t *testing.T) {
		cats, err := svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptops", "Camera's", "Gereedschap"}, cats)
	})

	t.Run("FAQ", func(t *testing.T) {
		assert.Len(t, svc.FAQ(""), 2)
		got := svc.FAQ("DAGEN")
		require.Len(t, got, 1)
		assert.Equal(t, "Hoe lang kan ik een apparaat lenen?", got[0].Question)
		assert.Empty(t, svc.FAQ("kosten"))
	})
}
