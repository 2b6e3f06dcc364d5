package storage

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dreamware/shardrisk/internal/risk"
)

// ReportStore persists risk reports as JSON in any Store.
//
// Report IDs are UUIDv7 strings, which sort in creation order, so the
// backend's ascending key order is also oldest first.
type ReportStore struct {
	store Store
}

// NewReportStore wraps store for report persistence.
func NewReportStore(store Store) *ReportStore {
	return &ReportStore{store: store}
}

// Save assigns a fresh ID to report, stores it and returns the stored copy.
func (r *ReportStore) Save(report risk.Report) (risk.Report, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return risk.Report{}, fmt.Errorf("generate report id: %w", err)
	}
	report.ID = id.String()

	data, err := json.Marshal(report)
	if err != nil {
		return risk.Report{}, fmt.Errorf("encode report: %w", err)
	}
	if err := r.store.Put(report.ID, data); err != nil {
		return risk.Report{}, fmt.Errorf("store report %s: %w", report.ID, err)
	}
	return report, nil
}

// Load returns the report stored under id.
// Returns ErrKeyNotFound (wrapped) if there is none.
func (r *ReportStore) Load(id string) (risk.Report, error) {
	data, err := r.store.Get(id)
	if err != nil {
		return risk.Report{}, fmt.Errorf("load report %s: %w", id, err)
	}
	var report risk.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return risk.Report{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return report, nil
}

// Delete removes the report stored under id.
func (r *ReportStore) Delete(id string) error {
	return r.store.Delete(id)
}

// List returns every stored report, oldest first.
func (r *ReportStore) List() ([]risk.Report, error) {
	ids, err := r.store.List()
	if err != nil {
		return nil, err
	}

	reports := make([]risk.Report, 0, len(ids))
	for _, id := range ids {
		report, err := r.Load(id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Stats returns statistics of the underlying store.
func (r *ReportStore) Stats() (StoreStats, error) {
	return r.store.Stats()
}
