package workspace

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
)

// Snapshot is a point-in-time capture of a data category, stored at
// data/{category}/YYYY-MM-DD.json and used to compute deltas against N days
// back.
type Snapshot struct {
	Category   string          `json:"category"`
	CapturedAt time.Time       `json:"captured_at"`
	Data       json.RawMessage `json:"data"`
}

func snapshotPath(category string, date time.Time) string {
	return filepath.Join("data", category, date.Format("2006-01-02")+".json")
}

// SaveSnapshot writes a snapshot for category at date, overwriting any
// existing snapshot for the same day.
func (s *Store) SaveSnapshot(category string, date time.Time, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return errkind.Wrap(errkind.IOError, "encode snapshot data", err)
	}
	snap := Snapshot{Category: category, CapturedAt: date.UTC(), Data: encoded}
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errkind.Wrap(errkind.IOError, "encode snapshot", err)
	}
	return s.Write(snapshotPath(category, date), string(out))
}

// LoadSnapshot reads the snapshot for category at date, reporting false if
// none exists for that day.
func (s *Store) LoadSnapshot(category string, date time.Time) (Snapshot, bool, error) {
	raw, ok, err := s.Read(snapshotPath(category, date))
	if err != nil || !ok {
		return Snapshot{}, ok, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false, errkind.Wrap(errkind.IOError, "parse snapshot", err)
	}
	return snap, true, nil
}

// SnapshotDelta loads the snapshots for category at `current` and
// `daysBack` days earlier, returning both (ok flags indicate whether each
// side existed) so the caller can compute whatever diff its category needs.
func (s *Store) SnapshotDelta(category string, current time.Time, daysBack int) (cur Snapshot, curOK bool, prior Snapshot, priorOK bool, err error) {
	cur, curOK, err = s.LoadSnapshot(category, current)
	if err != nil {
		return
	}
	prior, priorOK, err = s.LoadSnapshot(category, current.AddDate(0, 0, -daysBack))
	return
}
