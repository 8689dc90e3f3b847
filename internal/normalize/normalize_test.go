package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hylla/animebridge/internal/domain"
)

func TestItemMapsRawRecord(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	raw := domain.RawItem{
		Node: domain.RawNode{
			ID:          5114,
			Title:       "Fullmetal Alchemist: Brotherhood",
			Mean:        9.1,
			Rank:        1,
			Genres:      []domain.NamedRef{{ID: 1, Name: "Action"}, {ID: 2, Name: "Adventure"}},
			Studios:     []domain.NamedRef{{ID: 4, Name: "Bones"}},
			NumEpisodes: 64,
			MediaType:   "tv",
		},
		ListStatus: domain.RawListStatus{
			Status:             "completed",
			Score:              10,
			NumEpisodesWatched: 64,
			UpdatedAt:          "2026-03-01T22:30:00+00:00",
		},
	}

	got := Item(raw, loc)
	want := domain.CanonicalItem{
		ID:                 5114,
		Title:              "Fullmetal Alchemist: Brotherhood",
		Status:             domain.StatusCompleted,
		EpisodesWatched:    64,
		Score:              10,
		UpdatedAtFormatted: "02.03.2026",
		UpdatedAtRaw:       "2026-03-01T22:30:00+00:00",
		MeanRating:         9.1,
		Rank:               1,
		Genres:             []string{"Action", "Adventure"},
		Studios:            []string{"Bones"},
		TotalEpisodes:      64,
		MediaType:          "tv",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Item() mismatch (-want +got):\n%s", diff)
	}
}

func TestItemFallsBackToListUpdatedAt(t *testing.T) {
	raw := domain.RawItem{
		Node:       domain.RawNode{ID: 1, Title: "A"},
		ListStatus: domain.RawListStatus{Status: "watching", ListUpdatedAt: "2026-01-05T10:00:00Z"},
	}
	got := Item(raw, time.UTC)
	if got.UpdatedAtRaw != "2026-01-05T10:00:00Z" || got.UpdatedAtFormatted != "05.01.2026" {
		t.Fatalf("unexpected dates %q / %q", got.UpdatedAtRaw, got.UpdatedAtFormatted)
	}
}

func TestItemDegradesMalformedDate(t *testing.T) {
	raw := domain.RawItem{
		Node:       domain.RawNode{ID: 2, Title: "B"},
		ListStatus: domain.RawListStatus{Status: "watching", UpdatedAt: "yesterday-ish"},
	}
	got := Item(raw, time.UTC)
	if got.UpdatedAtFormatted != UnknownDate {
		t.Fatalf("expected sentinel, got %q", got.UpdatedAtFormatted)
	}
	if got.UpdatedAtRaw != "yesterday-ish" {
		t.Fatalf("expected raw value preserved, got %q", got.UpdatedAtRaw)
	}
	if got.Genres == nil || got.Studios == nil {
		t.Fatal("expected empty, non-nil genre and studio sequences")
	}
}

func TestItemsPreservesOrder(t *testing.T) {
	raws := []domain.RawItem{
		{Node: domain.RawNode{ID: 30}, ListStatus: domain.RawListStatus{Status: "watching"}},
		{Node: domain.RawNode{ID: 10}, ListStatus: domain.RawListStatus{Status: "dropped"}},
		{Node: domain.RawNode{ID: 20}, ListStatus: domain.RawListStatus{Status: "on_hold"}},
	}
	got := Items(raws, time.UTC).IDs()
	if diff := cmp.Diff([]int64{30, 10, 20}, got); diff != "" {
		t.Fatalf("Items() order mismatch (-want +got):\n%s", diff)
	}
	if len(Items(nil, time.UTC)) != 0 {
		t.Fatal("expected empty snapshot for nil input")
	}
}

func TestFormatDateZeroPads(t *testing.T) {
	if got := FormatDate("2026-07-04", time.UTC); got != "04.07.2026" {
		t.Fatalf("FormatDate() = %q", got)
	}
	if got := FormatDate("", time.UTC); got != UnknownDate {
		t.Fatalf("FormatDate(empty) = %q", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		raw     domain.RawItem
		wantErr bool
	}{
		{name: "ok", raw: domain.RawItem{Node: domain.RawNode{ID: 1}, ListStatus: domain.RawListStatus{Status: "watching"}}},
		{name: "missing id", raw: domain.RawItem{ListStatus: domain.RawListStatus{Status: "watching"}}, wantErr: true},
		{name: "missing status", raw: domain.RawItem{Node: domain.RawNode{ID: 1}}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.raw)
			if tc.wantErr && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestValidateUnique(t *testing.T) {
	ok := domain.Snapshot{{ID: 1}, {ID: 2}}
	if err := ValidateUnique(ok); err != nil {
		t.Fatalf("ValidateUnique() error = %v", err)
	}
	dup := domain.Snapshot{{ID: 1}, {ID: 2}, {ID: 1}}
	if err := ValidateUnique(dup); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ValidateUnique() error = %v, want ErrValidation", err)
	}
}
