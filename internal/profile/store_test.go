package profile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/advisor-desk/internal/profile"
	"github.com/agentoven/advisor-desk/pkg/models"
)

func intPtr(v int) *int { return &v }

func sampleProfile(userID, name string) *models.Profile {
	return &models.Profile{
		UserID: userID,
		Name:   name,
		Data: models.ProfileData{
			Personal: &models.PersonalInfo{Age: intPtr(34), City: "Pune", Dependents: 1},
			Income:   &models.IncomeInfo{MonthlyIncome: 150000, AnnualIncome: 1800000},
			Tax:      &models.TaxPlanning{PPFContribution: 100000, ELSSInvestment: 80000},
		},
	}
}

// storeFactories returns one constructor per Store implementation so the
// same behaviour is checked against each.
func storeFactories(t *testing.T) map[string]func() profile.Store {
	factories := map[string]func() profile.Store{
		"sqlite": func() profile.Store {
			s, err := profile.NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"memory": func() profile.Store {
			s := profile.NewMemoryStore(filepath.Join(t.TempDir(), "profiles.json"))
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
	if url := os.Getenv("ADVISOR_TEST_POSTGRES_URL"); url != "" {
		factories["postgres"] = func() profile.Store {
			ctx := context.Background()
			s, err := profile.NewPostgresStore(ctx, url)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			list, err := s.List(ctx)
			require.NoError(t, err)
			for _, p := range list {
				require.NoError(t, s.Delete(ctx, p.UserID))
			}
			return s
		}
	}
	return factories
}

func TestStore_SaveGet(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			in := sampleProfile("asha", "Asha")
			saved, err := s.Save(ctx, in)
			require.NoError(t, err)
			assert.False(t, saved.CreatedAt.IsZero())
			assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

			got, err := s.Get(ctx, "asha")
			require.NoError(t, err)
			assert.Equal(t, "Asha", got.Name)
			if diff := cmp.Diff(in.Data, got.Data); diff != "" {
				t.Errorf("profile data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_UpdateKeepsCreatedAt(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			first, err := s.Save(ctx, sampleProfile("asha", "Asha"))
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)

			upd := sampleProfile("asha", "Asha K")
			upd.Data.AdditionalInfo = "Planning a sabbatical"
			second, err := s.Save(ctx, upd)
			require.NoError(t, err)

			assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
			assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
			assert.Equal(t, "Asha K", second.Name)
			assert.Equal(t, "Planning a sabbatical", second.Data.AdditionalInfo)
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			for _, id := range []string{"a", "b", "c"} {
				_, err := s.Save(ctx, sampleProfile(id, id))
				require.NoError(t, err)
				time.Sleep(2 * time.Millisecond)
			}
			_, err := s.Save(ctx, sampleProfile("a", "a again"))
			require.NoError(t, err)

			list, err := s.List(ctx)
			require.NoError(t, err)
			ids := make([]string, len(list))
			for i, p := range list {
				ids[i] = p.UserID
			}
			assert.Equal(t, []string{"a", "c", "b"}, ids)
		})
	}
}

func TestStore_NotFoundAndDelete(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			_, err := s.Get(ctx, "ghost")
			var nf *profile.ErrNotFound
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, "ghost", nf.Key)

			_, err = s.Save(ctx, sampleProfile("asha", "Asha"))
			require.NoError(t, err)
			require.NoError(t, s.Delete(ctx, "asha"))
			assert.True(t, profile.IsNotFound(s.Delete(ctx, "asha")))

			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestStore_RejectsMissingUserID(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := newStore().Save(context.Background(), &models.Profile{Name: "x"})
			assert.ErrorIs(t, err, profile.ErrInvalidProfile)
		})
	}
}

func TestStore_ConcurrentWritesSameUser(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Save(ctx, sampleProfile("asha", "Asha"))
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestMemoryStore_SnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles.json")

	s := profile.NewMemoryStore(path)
	_, err := s.Save(ctx, sampleProfile("asha", "Asha"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := profile.NewMemoryStore(path)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "asha")
	require.NoError(t, err)
	if diff := cmp.Diff(sampleProfile("asha", "Asha").Data, got.Data, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded data mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := profile.NewMemoryStore("")
	defer s.Close()

	_, err := s.Save(ctx, sampleProfile("asha", "Asha"))
	require.NoError(t, err)

	got, err := s.Get(ctx, "asha")
	require.NoError(t, err)
	got.Data.Personal.City = "Mumbai"

	again, err := s.Get(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, "Pune", again.Data.Personal.City)
}
