package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike-predict/internal/models"
)

// Runs against a real PostgreSQL when TEST_DATABASE_URL is set.
func testRepo(t *testing.T) *ValuationRepository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := NewFromURL(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(context.Background()))
	return NewValuationRepository(db)
}

func TestValuationRepository_CreateAndList(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	session := uuid.NewString()
	t.Cleanup(func() { _, _ = repo.Clear(ctx, session) })

	older := &models.Valuation{
		SessionID: session, BrandCode: 1, BrandName: "honda", ModelCode: 10, ModelName: "honda cb",
		LocationCode: 5, LocationName: "pune", Year: 2020, Kilometers: 25000, Power: 150,
		Owner: models.OwnerFirst, Price: 125000, CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	newer := &models.Valuation{
		SessionID: session, BrandCode: 1, ModelCode: 11, LocationCode: models.LocationOther,
		LocationName: models.LocationOtherLabel, Year: 2018, Kilometers: 40000, Power: 110,
		Owner: models.OwnerSecond, Price: 48000,
	}

	id, err := repo.Create(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, id, older.ID)
	require.NoError(t, repo.RecordValuation(ctx, newer))

	list, err := repo.ListRecent(ctx, session, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, models.OwnerSecond, list[0].Owner)
	assert.Equal(t, "honda cb", list[1].ModelName)

	n, err := repo.Clear(ctx, session)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
