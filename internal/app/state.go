package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hylla/animebridge/internal/domain"
)

// State bag keys.
const (
	KeyLastSnapshot     = "last_snapshot"
	KeyLastSnapshotDate = "last_snapshot_date"
	KeyPendingChanges   = "pending_changes"
	KeyLatestFetch      = "latest_fetch"
	KeyLastSynced       = "last_synced"
	KeyWatching         = "anime_list_watching"
	KeyPlanToWatch      = "anime_list_plan_to_watch"
	KeyFavorites        = "anime_list_favorites"
	KeyHistory          = "anime_list_history"
)

// stateKeys lists every key the service reads or writes.
var stateKeys = []string{
	KeyLastSnapshot,
	KeyLastSnapshotDate,
	KeyPendingChanges,
	KeyLatestFetch,
	KeyLastSynced,
	KeyWatching,
	KeyPlanToWatch,
	KeyFavorites,
	KeyHistory,
}

// StateKeys returns a copy of the state bag keys.
func StateKeys() []string {
	return append([]string(nil), stateKeys...)
}

// state is the decoded view of the bag. Absent keys decode to zero values.
type state struct {
	LastSnapshot     domain.Snapshot
	LastSnapshotDate *time.Time
	Pending          *domain.PendingReport
	LatestFetch      domain.Snapshot
	LastSynced       *time.Time
	Watching         domain.Snapshot
	PlanToWatch      domain.Snapshot
	Favorites        domain.Snapshot
	History          domain.Snapshot
}

func decodeState(bag Bag) (state, error) {
	var st state
	fields := []struct {
		key string
		dst any
	}{
		{KeyLastSnapshot, &st.LastSnapshot},
		{KeyPendingChanges, &st.Pending},
		{KeyLatestFetch, &st.LatestFetch},
		{KeyWatching, &st.Watching},
		{KeyPlanToWatch, &st.PlanToWatch},
		{KeyFavorites, &st.Favorites},
		{KeyHistory, &st.History},
	}
	for _, f := range fields {
		raw, ok := bag[f.key]
		if !ok || len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return state{}, fmt.Errorf("decode %s: %w", f.key, err)
		}
	}
	var err error
	if st.LastSnapshotDate, err = decodeTime(bag, KeyLastSnapshotDate); err != nil {
		return state{}, err
	}
	if st.LastSynced, err = decodeTime(bag, KeyLastSynced); err != nil {
		return state{}, err
	}
	return st, nil
}

// decodeTime reads an ISO-8601 string value. Unparseable values read as absent.
func decodeTime(bag Bag, key string) (*time.Time, error) {
	raw, ok := bag[key]
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if s == nil {
		return nil, nil
	}
	ts, ok := domain.ParseTimestamp(*s)
	if !ok {
		return nil, nil
	}
	return &ts, nil
}

// put encodes v into bag under key.
func put(bag Bag, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	bag[key] = raw
	return nil
}

func putTime(bag Bag, key string, ts time.Time) error {
	return put(bag, key, domain.FormatTimestamp(ts))
}
