package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

const schema = `
create table if not exists Snapshots (
	ID text primary key,
	Source text not null,
	FetchedAt datetime not null,
	ObserverLat float,
	ObserverLon float,
	Category text,
	Transactions int,
	ObjectCount int
);
create table if not exists SnapshotObjects (
	ID integer primary key,
	SnapshotID text not null,
	SATCATID integer not null,
	Name text,
	Designator text,
	LaunchDate text,
	LatDeg float,
	LonDeg float,
	AltKm float,
	FOREIGN KEY (SnapshotID) REFERENCES Snapshots(ID)
);
create index if not exists SnapshotsFetchedAt on Snapshots(FetchedAt);
`

// History stores fetched snapshots in a sqlite database.
type History struct {
	db *sql.DB
}

// SnapshotSummary is one row of the history listing.
type SnapshotSummary struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	FetchedAt    time.Time `json:"fetched_at"`
	ObserverLat  float64   `json:"observer_lat"`
	ObserverLon  float64   `json:"observer_lon"`
	Transactions int       `json:"transactions"`
	Objects      int       `json:"objects"`
}

// OpenHistory opens (creating if needed) the database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?cache=shared&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &History{db: db}, nil
}

// DriverVersion returns the linked sqlite library version.
func DriverVersion() string {
	v, _, _ := sqlite3.Version()
	return v
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores snap and its objects in one transaction.
func (h *History) Record(ctx context.Context, snap *Snapshot) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `insert into Snapshots(
		ID, Source, FetchedAt, ObserverLat, ObserverLon, Category, Transactions, ObjectCount
	) values(?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.FetchedAt.UTC(), snap.ObserverLat, snap.ObserverLon,
		snap.Category, snap.Transactions, len(snap.Objects),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `insert into SnapshotObjects(
		SnapshotID, SATCATID, Name, Designator, LaunchDate, LatDeg, LonDeg, AltKm
	) values(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare objects: %w", err)
	}
	defer stmt.Close()

	for _, o := range snap.Objects {
		if _, err := stmt.ExecContext(ctx, snap.ID, o.NORADID, o.Name, o.Designator, o.LaunchDate, o.LatDeg, o.LonDeg, o.AltKm); err != nil {
			return fmt.Errorf("insert object %d: %w", o.NORADID, err)
		}
	}
	return tx.Commit()
}

// Recent lists up to limit snapshots, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `select ID, Source, FetchedAt, ObserverLat, ObserverLon, Transactions, ObjectCount
		from Snapshots order by FetchedAt desc limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var s SnapshotSummary
		if err := rows.Scan(&s.ID, &s.Source, &s.FetchedAt, &s.ObserverLat, &s.ObserverLon, &s.Transactions, &s.Objects); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Objects returns the objects stored for one snapshot.
func (h *History) Objects(ctx context.Context, snapshotID string) ([]TrackedObject, error) {
	rows, err := h.db.QueryContext(ctx, `select SATCATID, Name, Designator, LaunchDate, LatDeg, LonDeg, AltKm
		from SnapshotObjects where SnapshotID = ? order by ID`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	var out []TrackedObject
	for rows.Next() {
		var o TrackedObject
		if err := rows.Scan(&o.NORADID, &o.Name, &o.Designator, &o.LaunchDate, &o.LatDeg, &o.LonDeg, &o.AltKm); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
