// Package dashboard holds the progress of the current crawl run and the
// page that displays it.
package dashboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/IshaanNene/Shelfie/internal/types"
)

// MaxLogLines is the number of recent log lines kept for polling.
const MaxLogLines = 50

// Status is a point-in-time copy of a RunState.
type Status struct {
	RunID        string     `json:"run_id,omitempty"`
	Running      bool       `json:"running"`
	Site         string     `json:"site,omitempty"`
	Progress     int        `json:"progress"`
	CurrentPage  int        `json:"current_page"`
	TotalPages   int        `json:"total_pages"`
	ProductCount int        `json:"product_count"`
	Logs         []string   `json:"logs"`
	OutputFiles  []string   `json:"output_files"`
	Notification string     `json:"notification,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Elapsed      string     `json:"elapsed,omitempty"`
}

// RunState is the single owner of run progress. The crawl goroutine writes
// it through the engine.Observer methods and the control plane reads
// copies through Snapshot.
type RunState struct {
	mu sync.RWMutex

	runID        string
	running      bool
	site         string
	progress     int
	currentPage  int
	totalPages   int
	pageBase     int
	productCount int
	logs         []string
	outputFiles  []string
	notification string
	err          string
	startedAt    time.Time
	finishedAt   time.Time

	now func() time.Time
}

// NewRunState creates an idle RunState.
func NewRunState() *RunState {
	return &RunState{now: time.Now}
}

// Begin marks a run as started. It fails with types.ErrRunInProgress while
// another run is active. Logs survive; everything else resets.
func (s *RunState) Begin(runID, site string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return types.ErrRunInProgress
	}
	s.runID = runID
	s.running = true
	s.site = site
	s.progress = 0
	s.currentPage = 0
	s.totalPages = 0
	s.pageBase = 0
	s.productCount = 0
	s.outputFiles = nil
	s.notification = ""
	s.err = ""
	s.startedAt = s.now()
	s.finishedAt = time.Time{}
	return nil
}

// Finish marks the run as ended. A nil err completes progress to 100.
func (s *RunState) Finish(products int, files []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.finishedAt = s.now()
	s.productCount = products
	s.outputFiles = append([]string(nil), files...)
	if err != nil {
		s.err = err.Error()
		s.notification = fmt.Sprintf("Scrape of %s failed: %v", s.site, err)
		return
	}
	s.progress = 100
	s.notification = fmt.Sprintf("Scraped %d products from %s", products, s.site)
}

// Running reports whether a run is active.
func (s *RunState) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// OnDiscovered adds a category's page count to the run total. Successive
// categories of a multi-category run accumulate.
func (s *RunState) OnDiscovered(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageBase = s.totalPages
	s.totalPages += total
}

// OnPageStart records the page being crawled, numbered across categories.
func (s *RunState) OnPageStart(page, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPage = s.pageBase + page
	if s.totalPages > 0 {
		s.progress = min(95, s.currentPage*100/s.totalPages)
	}
}

// OnPageDone adds the products a page contributed.
func (s *RunState) OnPageDone(_, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productCount += count
}

// Log appends a line, dropping the oldest beyond MaxLogLines.
func (s *RunState) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, line)
	if over := len(s.logs) - MaxLogLines; over > 0 {
		s.logs = append(s.logs[:0], s.logs[over:]...)
	}
}

// ClearLogs empties the log ring.
func (s *RunState) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *RunState) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		RunID:        s.runID,
		Running:      s.running,
		Site:         s.site,
		Progress:     s.progress,
		CurrentPage:  s.currentPage,
		TotalPages:   s.totalPages,
		ProductCount: s.productCount,
		Logs:         append([]string{}, s.logs...),
		OutputFiles:  append([]string{}, s.outputFiles...),
		Notification: s.notification,
		Error:        s.err,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		st.StartedAt = &started
		end := s.now()
		if !s.finishedAt.IsZero() {
			finished := s.finishedAt
			st.FinishedAt = &finished
			end = finished
		}
		st.Elapsed = end.Sub(started).Round(time.Second).String()
	}
	return st
}
