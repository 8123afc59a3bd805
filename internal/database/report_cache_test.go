package database

import (
	"testing"

	"pulse-tracker-report/internal/models"
)

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	users := []models.UserRef{{ID: 3, Name: "cem"}, {ID: 1, Name: "ben"}, {ID: 2, Name: "ana"}}
	permutations := [][]models.UserRef{
		{users[0], users[1], users[2]},
		{users[0], users[2], users[1]},
		{users[1], users[0], users[2]},
		{users[1], users[2], users[0]},
		{users[2], users[0], users[1]},
		{users[2], users[1], users[0]},
	}

	want := CacheKey("Turbo", 3, permutations[0], "2025-11-17", "2025-11-23")
	for i, perm := range permutations[1:] {
		got := CacheKey("Turbo", 3, perm, "2025-11-17", "2025-11-23")
		if got != want {
			t.Fatalf("permutation %d: key %s != %s", i+1, got, want)
		}
	}
}

func TestCacheKeyIsDeterministic(t *testing.T) {
	users := []models.UserRef{{ID: 1, Name: "ben"}}
	a := CacheKey("Turbo", 3, users, "2025-11-19", "2025-11-19")
	b := CacheKey("Turbo", 3, users, "2025-11-19", "2025-11-19")
	if a != b {
		t.Fatalf("identical parameters produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestCacheKeyDistinguishesParameters(t *testing.T) {
	base := CacheKey("Turbo", 3, []models.UserRef{{ID: 1, Name: "ben"}}, "2025-11-17", "2025-11-23")

	variants := []string{
		CacheKey("Nimbus", 3, []models.UserRef{{ID: 1, Name: "ben"}}, "2025-11-17", "2025-11-23"),
		CacheKey("Turbo", 4, []models.UserRef{{ID: 1, Name: "ben"}}, "2025-11-17", "2025-11-23"),
		CacheKey("Turbo", 3, []models.UserRef{{ID: 2, Name: "ben"}}, "2025-11-17", "2025-11-23"),
		CacheKey("Turbo", 3, []models.UserRef{{ID: 1, Name: "bea"}}, "2025-11-17", "2025-11-23"),
		CacheKey("Turbo", 3, []models.UserRef{{ID: 1, Name: "ben"}, {ID: 2, Name: "ana"}}, "2025-11-17", "2025-11-23"),
		CacheKey("Turbo", 3, []models.UserRef{{ID: 1, Name: "ben"}}, "2025-11-18", "2025-11-23"),
		CacheKey("Turbo", 3, []models.UserRef{{ID: 1, Name: "ben"}}, "2025-11-17", "2025-11-24"),
	}
	for i, variant := range variants {
		if variant == base {
			t.Fatalf("variant %d collides with the base key", i)
		}
	}
}

func TestCacheKeyDoesNotMutateInput(t *testing.T) {
	users := []models.UserRef{{ID: 3, Name: "cem"}, {ID: 1, Name: "ben"}}
	CacheKey("Turbo", 3, users, "2025-11-17", "2025-11-23")
	if users[0].ID != 3 || users[1].ID != 1 {
		t.Fatal("CacheKey must not reorder the caller's slice")
	}
}
