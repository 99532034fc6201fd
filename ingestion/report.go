// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"fmt"
	"strings"
	"time"
)

// Report summarizes one ingestion run.
type Report struct {
	// Collection is the collection the sources were indexed into.
	Collection string
	// Succeeded lists the sources that were fully indexed, in input order.
	Succeeded []string
	// Failed lists the sources that were not indexed, in input order.
	Failed []string
	// Errors maps each failed source to its failure.
	Errors map[string]error
	// ChunksIndexed counts the records written across all succeeding sources.
	ChunksIndexed int
	// Skipped is set when ingestion was skipped because the collection was
	// already populated.
	Skipped bool
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// NewSkippedReport returns a report for a run that indexed nothing because
// collection already held records.
func NewSkippedReport(collection string) *Report {
	return &Report{
		Collection: collection,
		Errors:     map[string]error{},
		Skipped:    true,
	}
}

// String returns a one-line tally of the run.
func (r *Report) String() string {
	if r.Skipped {
		return fmt.Sprintf("collection %q already indexed, skipped ingestion", r.Collection)
	}
	return fmt.Sprintf("indexed %d chunks into %q: %d succeeded, %d failed (%s)",
		r.ChunksIndexed, r.Collection, len(r.Succeeded), len(r.Failed), r.Elapsed.Round(time.Millisecond))
}

// Details returns one line per failed source with its error.
func (r *Report) Details() string {
	var b strings.Builder
	for _, source := range r.Failed {
		fmt.Fprintf(&b, "%s: %v\n", source, r.Errors[source])
	}
	return b.String()
}
