// Package storage keeps evaluated risk reports so that capacity plans can be
// listed, compared and fetched again after the fact.
//
// # Overview
//
// The package has two layers: a byte-oriented Store interface with
// interchangeable backends, and a ReportStore that encodes risk.Report values
// as JSON on top of any Store.
//
//	┌─────────────────────────────────────┐
//	│          ReportStore                │
//	│  Save / Load / List / Delete        │
//	│  UUIDv7 IDs, JSON records           │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│        Store interface              │
//	└─────────────────────────────────────┘
//	          │                 │
//	          ▼                 ▼
//	   ┌────────────┐    ┌────────────┐
//	   │ MemoryStore│    │ BoltStore  │
//	   └────────────┘    └────────────┘
//
// # Implementations
//
// MemoryStore: map guarded by sync.RWMutex
//   - No persistence (data lost on restart)
//   - Suitable for tests and short-lived services
//
// BoltStore: single-bucket bolt database file
//   - Survives restarts
//   - One writer at a time, readers run in parallel
//   - Opening fails after one second if another process holds the file
//
// # Contract
//
// Backends copy values on the way in and out and list keys in ascending
// byte order. Empty keys are rejected with ErrEmptyKey and missing keys
// answer ErrKeyNotFound, but Delete of a missing key succeeds. After Close
// every call fails with ErrClosed.
//
// # Example
//
//	store, err := storage.OpenBoltStore("reports.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	reports := storage.NewReportStore(store)
//	saved, err := reports.Save(report)
package storage
