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


package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress prints how many of a known number of records have been copied.
// Lines are rewritten in place with a carriage return.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	total    int
	every    int
	done     int
	reported int
	start    time.Time
	running  bool
	now      func() time.Time
}

// Summary describes a finished copy.
type Summary struct {
	Records int
	Elapsed time.Duration
}

// Rate returns records per second, or 0 when no time has elapsed.
func (s Summary) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Records) / s.Elapsed.Seconds()
}

func (s Summary) String() string {
	return fmt.Sprintf("%d records in %v (%.1f records/s)", s.Records, s.Elapsed.Round(time.Millisecond), s.Rate())
}

// NewProgress creates a progress printer for total records that prints
// after every `every` records. every is raised to 1.
func NewProgress(w io.Writer, label string, total, every int) *Progress {
	return &Progress{
		w:     w,
		label: label,
		total: total,
		every: max(every, 1),
		now:   time.Now,
	}
}

// Start resets the count and the clock.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = p.now()
	p.running = true
	p.done = 0
	p.reported = 0
}

// Add records n more copied records. It does nothing before Start.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.reported >= p.every {
		p.print()
		p.reported = p.done
	}
}

// Done prints the final line and returns the summary. Calling Done before
// Start returns an empty summary and prints nothing.
func (p *Progress) Done() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return Summary{}
	}
	p.running = false
	p.print()
	fmt.Fprintln(p.w)
	return Summary{Records: p.done, Elapsed: p.now().Sub(p.start)}
}

// print writes the current line. Must be called with the lock held.
func (p *Progress) print() {
	elapsed := p.now().Sub(p.start)
	summary := Summary{Records: p.done, Elapsed: elapsed}

	percent := 100.0
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total) * 100
	}

	eta := "-"
	if rate := summary.Rate(); rate > 0 {
		remaining := time.Duration(float64(p.total-p.done) / rate * float64(time.Second))
		eta = remaining.Round(time.Second).String()
	}

	fmt.Fprintf(p.w, "\r%s: %d/%d (%.1f%%) %.1f records/s, eta %s",
		p.label, p.done, p.total, percent, summary.Rate(), eta)
}
