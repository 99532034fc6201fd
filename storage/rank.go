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


package storage

import (
	"cmp"
	"slices"

	"github.com/poiesic/ragchat/core"
)

// Rank scores records against query and returns at most limit results with
// a score of at least minScore. Results are sorted by score descending; equal
// scores are ordered by Seq so insertion order decides ties.
func Rank(records []*core.VectorRecord, query []float32, limit int, minScore float32) []*core.SearchResult {
	if limit <= 0 {
		return nil
	}

	var results []*core.SearchResult
	for _, record := range records {
		similarity := core.CosineSimilarity(query, record.Vector)
		if similarity >= minScore {
			results = append(results, &core.SearchResult{
				Record: record,
				Score:  similarity,
			})
		}
	}

	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return cmp.Compare(a.Record.Seq, b.Record.Seq)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
