package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/repository"
)

var seededAt = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestDevCatalog(t *testing.T) {
	suppliers, plans := DevCatalog(seededAt)

	assert.Len(t, suppliers, 5)
	assert.Len(t, plans, 13)

	kinds := map[plan.RateKind]int{}
	for _, p := range plans {
		require.NoError(t, p.Validate(), p.Name)
		require.NotNil(t, p.Supplier)
		assert.Equal(t, p.Supplier.ID, p.SupplierID)
		assert.True(t, p.Active)
		kinds[p.RateKind]++
	}
	assert.Equal(t, map[plan.RateKind]int{
		plan.RateFixed:     8,
		plan.RateVariable:  3,
		plan.RateIndexed:   1,
		plan.RateTimeOfUse: 1,
	}, kinds)
}

type failingSeedStore struct {
	*repository.MemoryStore
	failPlan string
}

func (f failingSeedStore) CreatePlan(ctx context.Context, p *plan.Plan) error {
	if p.Name == f.failPlan {
		return errors.New("disk full")
	}
	return f.MemoryStore.CreatePlan(ctx, p)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		prepare   func(t *testing.T, store *repository.MemoryStore)
		failPlan  string
		want      SeedResult
		wantErr   string
		wantPlans int
	}{
		{
			name:      "empty store gets the catalog",
			want:      SeedResult{Suppliers: 5, Plans: 13},
			wantPlans: 13,
		},
		{
			name: "existing supplier skips seeding",
			prepare: func(t *testing.T, store *repository.MemoryStore) {
				require.NoError(t, store.CreateSupplier(ctx, &plan.Supplier{Name: "Incumbent", Active: false}))
			},
			want: SeedResult{Skipped: true},
		},
		{
			name:      "store failure stops seeding",
			failPlan:  "Value Basic",
			want:      SeedResult{Suppliers: 5, Plans: 5},
			wantErr:   "failed to create plan Value Basic",
			wantPlans: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			if tt.prepare != nil {
				tt.prepare(t, store)
			}

			got, err := Seed(ctx, failingSeedStore{MemoryStore: store, failPlan: tt.failPlan}, seededAt)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)

			active, err := store.ListActivePlans(ctx)
			require.NoError(t, err)
			assert.Len(t, active, tt.wantPlans)
		})
	}

	t.Run("second run is a no-op", func(t *testing.T) {
		store := repository.NewMemoryStore()
		_, err := Seed(ctx, store, seededAt)
		require.NoError(t, err)

		got, err := Seed(ctx, store, seededAt)
		require.NoError(t, err)
		assert.True(t, got.Skipped)

		active, err := store.ListActivePlans(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 13)
	})
}
