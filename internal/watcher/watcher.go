// Package watcher defines the abstract callback contract the sync engine
// depends on for filesystem change notification. Concrete producers live
// in subpackages.
package watcher

// Callback receives one raw batch of absolute path strings per
// notification. Batches may contain duplicates and non-canonical paths;
// the orchestrator canonicalizes and de-duplicates them downstream.
type Callback func(batch []string)
