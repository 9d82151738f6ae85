// Package pipeline implements the comment lifecycle stages.
//
// The ingestion stage pulls one generated comment per tick and persists it
// as RAW. The analysis stage claims one eligible comment per tick and drives
// it through a bounded retry loop to a terminal state (ANALYZED or FAILED).
// Attempt counts are persisted after every failed call so a crash mid-retry
// never loses history.
package pipeline
