package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"seatplan/api/internal/config"
	"seatplan/api/internal/export"
	"seatplan/api/internal/genai"
	"seatplan/api/internal/roster"
	"seatplan/api/internal/seating"
	"seatplan/api/internal/session"
	"seatplan/api/internal/util"
)

// Sync lifecycle statuses exposed in chart payloads.
const (
	syncIdle       = "idle"
	syncRequesting = "requesting"
	syncRetrying   = "retrying"
	syncParsing    = "parsing"
	syncMerged     = "merged"
	syncFailed     = "failed"
)

// seatingGenerator produces seating proposals from a chart snapshot and a
// pasted roster.
type seatingGenerator interface {
	GenerateSeating(ctx context.Context, req genai.Request) (seating.Proposal, error)
}

// chartExporter renders charts into downloadable files.
type chartExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// Service owns the chart operations. Chart state lives in the session
// store; the service serializes access per chart and runs AI reconciliation
// in the background.
type Service struct {
	cfg      config.Config
	charts   session.Store
	ai       seatingGenerator
	exporter chartExporter
	sortTag  language.Tag

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	inflight map[string]*inflightSync
}

// inflightSync tracks one background reconciliation so it can be canceled
// and so late results from superseded runs are dropped.
type inflightSync struct {
	seq    int64
	cancel context.CancelFunc
}

// New creates a service without an AI generator; reconcile requests are
// rejected until one is configured.
func New(cfg config.Config, charts session.Store, exporter chartExporter) *Service {
	tag, err := language.Parse(cfg.SortLocale)
	if err != nil {
		tag = language.English
	}
	return &Service{
		cfg:      cfg,
		charts:   charts,
		exporter: exporter,
		sortTag:  tag,
		locks:    make(map[string]*sync.Mutex),
		inflight: make(map[string]*inflightSync),
	}
}

// NewWithGenerator creates a service with AI reconciliation enabled.
func NewWithGenerator(cfg config.Config, charts session.Store, generator seatingGenerator, exporter chartExporter) *Service {
	s := New(cfg, charts, exporter)
	s.ai = generator
	return s
}

// Ping reports whether the chart store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.charts.Ping(ctx)
}

// MaxUploadBytes bounds roster uploads.
func (s *Service) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

// chartLock returns the mutex serializing operations on one chart.
func (s *Service) chartLock(chartID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[chartID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[chartID] = lock
	}
	return lock
}

func (s *Service) loadChart(ctx context.Context, chartID string) (session.Record, error) {
	rec, err := s.charts.Get(ctx, chartID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Record{}, errNotFound()
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("load chart: %w", err)
	}
	return rec, nil
}

// updateChart runs apply against the chart under its lock and persists the
// result. A successful operation clears any stored failure.
func (s *Service) updateChart(ctx context.Context, chartID string, apply func(*seating.Chart) error) (map[string]any, error) {
	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadChart(ctx, chartID)
	if err != nil {
		return nil, err
	}

	chart := seating.FromState(rec.Chart)
	if err := apply(chart); err != nil {
		return nil, err
	}

	rec.Chart = chart.State()
	rec.LastError = nil
	rec.UpdatedAt = time.Now().UTC()
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		return nil, fmt.Errorf("store chart: %w", err)
	}
	return chartPayload(chartID, rec), nil
}

// CreateChart starts a new session with the default room layout.
func (s *Service) CreateChart(ctx context.Context, settings seating.Settings) (map[string]any, error) {
	chart := seating.NewChart()
	if settings != (seating.Settings{}) {
		chart.UpdateSettings(settings)
	}

	chartID := util.NewID("chart")
	now := time.Now().UTC()
	rec := session.Record{
		Chart:     chart.State(),
		Sync:      session.SyncState{Status: syncIdle},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		return nil, fmt.Errorf("store chart: %w", err)
	}
	return chartPayload(chartID, rec), nil
}

// GetChart returns the current chart payload.
func (s *Service) GetChart(ctx context.Context, chartID string) (map[string]any, error) {
	rec, err := s.loadChart(ctx, chartID)
	if err != nil {
		return nil, err
	}
	return chartPayload(chartID, rec), nil
}

// DeleteChart ends a session, canceling any reconciliation in flight.
func (s *Service) DeleteChart(ctx context.Context, chartID string) error {
	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.loadChart(ctx, chartID); err != nil {
		return err
	}
	if err := s.charts.Delete(ctx, chartID); err != nil {
		return fmt.Errorf("delete chart: %w", err)
	}

	s.mu.Lock()
	if entry, ok := s.inflight[chartID]; ok {
		entry.cancel()
		delete(s.inflight, chartID)
	}
	delete(s.locks, chartID)
	s.mu.Unlock()
	return nil
}

// ResizeGrid sets the grid dimensions. Values below 1 are coerced up; desks
// and names outside the new bounds are retained, not destroyed.
func (s *Service) ResizeGrid(ctx context.Context, chartID string, rows, cols int) (map[string]any, error) {
	return s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		chart.Resize(rows, cols)
		return nil
	})
}

// ToggleDesk flips a cell between desk and empty. Toggling off a desk with
// a seated student is refused and reported in the payload, not as an error.
func (s *Service) ToggleDesk(ctx context.Context, chartID string, row, col int) (map[string]any, error) {
	if row < 0 || col < 0 {
		return nil, errValidation("row and col must be non-negative", nil)
	}

	var result seating.ToggleResult
	payload, err := s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		result = chart.ToggleDesk(row, col)
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload["toggled"] = !result.Blocked
	payload["desk"] = result.Coord.Key()
	payload["active"] = result.Active
	if result.Blocked {
		payload["blocked"] = "occupied"
	}
	return payload, nil
}

// SetSeat writes a name into a seat, overwriting whatever is there. An
// empty name clears the seat without removing the desk.
func (s *Service) SetSeat(ctx context.Context, chartID, key, name string) (map[string]any, error) {
	coord, err := seating.ParseKey(key)
	if err != nil {
		return nil, errValidation("invalid seat key", map[string]any{"key": key})
	}
	return s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		chart.SetAssignment(coord, name)
		return nil
	})
}

// SetSeatFlags updates the accommodation flags for a seat. Clear removes
// the entry entirely.
func (s *Service) SetSeatFlags(ctx context.Context, chartID, key string, isPriority bool, flagType string, clear bool) (map[string]any, error) {
	coord, err := seating.ParseKey(key)
	if err != nil {
		return nil, errValidation("invalid seat key", map[string]any{"key": key})
	}
	if !clear && flagType != "" && !seating.ValidFlagType(flagType) {
		return nil, errValidation("type must be 'IEP', '504', or 'ELL'", nil)
	}
	return s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		if clear {
			chart.SetSeatFlags(coord, nil)
			return nil
		}
		chart.SetSeatFlags(coord, &seating.SeatFlags{IsPriority: isPriority, Type: flagType})
		return nil
	})
}

// UpdateSettings replaces the chart header fields.
func (s *Service) UpdateSettings(ctx context.Context, chartID string, settings seating.Settings) (map[string]any, error) {
	return s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		chart.UpdateSettings(settings)
		return nil
	})
}

// SortAlpha reorders the seated names alphabetically across the desks.
func (s *Service) SortAlpha(ctx context.Context, chartID string) (map[string]any, error) {
	// Collators are not safe for concurrent use, so build one per call.
	collator := collate.New(s.sortTag)
	return s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		chart.SortAlpha(collator)
		return nil
	})
}

// Shuffle redistributes the seated names across the desks at random.
func (s *Service) Shuffle(ctx context.Context, chartID string) (map[string]any, error) {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return s.updateChart(ctx, chartID, func(chart *seating.Chart) error {
		chart.Shuffle(rng)
		return nil
	})
}

// DismissError clears the stored failure without touching the chart.
func (s *Service) DismissError(ctx context.Context, chartID string) (map[string]any, error) {
	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadChart(ctx, chartID)
	if err != nil {
		return nil, err
	}
	rec.LastError = nil
	rec.UpdatedAt = time.Now().UTC()
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		return nil, fmt.Errorf("store chart: %w", err)
	}
	return chartPayload(chartID, rec), nil
}

// ImportRoster extracts student names from an uploaded spreadsheet and
// returns them as roster text ready for reconciliation.
func (s *Service) ImportRoster(ctx context.Context, chartID string, file io.Reader) (map[string]any, error) {
	if _, err := s.loadChart(ctx, chartID); err != nil {
		return nil, err
	}

	names, err := roster.FromXLSX(file)
	if err != nil {
		return nil, errValidation("could not read the spreadsheet", map[string]any{"reason": err.Error()})
	}
	if len(names) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "EMPTY_ROSTER", "No student names found in the spreadsheet", nil)
	}
	return map[string]any{
		"names":      names,
		"rosterText": roster.Join(names),
		"count":      len(names),
	}, nil
}

// ExportChart renders the chart in the requested format.
func (s *Service) ExportChart(ctx context.Context, chartID, format string, share bool) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not available", nil)
	}
	f := export.Format(format)
	if !export.ValidFormat(f) {
		return nil, errValidation("format must be 'png', 'pdf', or 'xlsx'", nil)
	}

	rec, err := s.loadChart(ctx, chartID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, export.Request{Chart: rec.Chart, Format: f, Share: share})
}

// StartReconcile kicks off a background AI reconciliation of the pasted
// roster against the chart. The chart snapshot is version-stamped so the
// merge can be flagged stale if the user keeps editing while it runs.
func (s *Service) StartReconcile(ctx context.Context, chartID, rosterText string) (map[string]any, error) {
	if s.ai == nil {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI reconciliation is not configured", nil)
	}
	if strings.TrimSpace(rosterText) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "EMPTY_ROSTER", "Roster text is empty", nil)
	}

	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadChart(ctx, chartID)
	if err != nil {
		return nil, err
	}
	if isInFlight(rec.Sync.Status) {
		return nil, domainError(http.StatusConflict, "SYNC_IN_FLIGHT", "A reconcile request is already running for this chart", nil)
	}

	seq := rec.Sync.Seq + 1
	rec.Sync = session.SyncState{
		Status:          syncRequesting,
		Attempt:         1,
		Seq:             seq,
		SnapshotVersion: rec.Chart.Version,
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		return nil, fmt.Errorf("store chart: %w", err)
	}

	// The run outlives this request; it ends on explicit cancel or chart
	// deletion, never with the caller's context.
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.inflight[chartID] = &inflightSync{seq: seq, cancel: cancel}
	s.mu.Unlock()

	go s.runReconcile(runCtx, chartID, seq, rec.Chart, rosterText)

	return chartPayload(chartID, rec), nil
}

// CancelReconcile stops an in-flight reconciliation and returns the chart
// to idle. Results that arrive after cancellation are dropped.
func (s *Service) CancelReconcile(ctx context.Context, chartID string) (map[string]any, error) {
	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadChart(ctx, chartID)
	if err != nil {
		return nil, err
	}

	canceled := false
	if isInFlight(rec.Sync.Status) {
		s.mu.Lock()
		if entry, ok := s.inflight[chartID]; ok && entry.seq == rec.Sync.Seq {
			entry.cancel()
		}
		s.mu.Unlock()

		rec.Sync.Status = syncIdle
		rec.Sync.Attempt = 0
		rec.UpdatedAt = time.Now().UTC()
		if err := s.charts.Put(ctx, chartID, rec); err != nil {
			return nil, fmt.Errorf("store chart: %w", err)
		}
		canceled = true
	}

	payload := chartPayload(chartID, rec)
	payload["canceled"] = canceled
	return payload, nil
}

// runReconcile drives one background reconciliation to completion.
func (s *Service) runReconcile(ctx context.Context, chartID string, seq int64, snapshot seating.State, rosterText string) {
	defer s.clearInflight(chartID, seq)

	proposal, err := s.ai.GenerateSeating(ctx, genai.Request{
		State:      snapshot,
		RosterText: rosterText,
		Notify: func(phase genai.Phase, attempt int) {
			s.recordSyncPhase(chartID, seq, phase, attempt)
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			// Canceled; the sync state was already reset.
			return
		}
		s.failSync(chartID, seq, err)
		return
	}

	s.completeMerge(chartID, seq, snapshot.Version, proposal)
}

func (s *Service) clearInflight(chartID string, seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.inflight[chartID]; ok && entry.seq == seq {
		entry.cancel()
		delete(s.inflight, chartID)
	}
}

// storeCtx bounds background store writes, which run detached from any
// request context.
func storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// recordSyncPhase publishes a phase transition on the chart's sync state.
// Updates from superseded or canceled runs are dropped.
func (s *Service) recordSyncPhase(chartID string, seq int64, phase genai.Phase, attempt int) {
	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := storeCtx()
	defer cancel()

	rec, err := s.charts.Get(ctx, chartID)
	if err != nil {
		return
	}
	if rec.Sync.Seq != seq || !isInFlight(rec.Sync.Status) {
		return
	}

	switch phase {
	case genai.PhaseRequesting:
		rec.Sync.Status = syncRequesting
	case genai.PhaseRetrying:
		rec.Sync.Status = syncRetrying
	case genai.PhaseParsing:
		rec.Sync.Status = syncParsing
	default:
		return
	}
	if attempt > 0 {
		rec.Sync.Attempt = attempt
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		log.Printf("record sync phase for chart %s: %v", chartID, err)
	}
}

// failSync records the failure on the chart for the user to see.
func (s *Service) failSync(chartID string, seq int64, cause error) {
	log.Printf("reconcile failed for chart %s: %v", chartID, cause)

	failure := &session.Failure{
		Code:    "SYNC_FAILED",
		Message: "Could not reach the seating assistant. Try again in a moment.",
	}
	var formatErr *genai.FormatError
	if errors.As(cause, &formatErr) {
		failure = &session.Failure{
			Code:    "FORMAT_ERROR",
			Message: "The seating assistant returned an unreadable plan. Try again.",
		}
	}

	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := storeCtx()
	defer cancel()

	rec, err := s.charts.Get(ctx, chartID)
	if err != nil {
		return
	}
	if rec.Sync.Seq != seq || !isInFlight(rec.Sync.Status) {
		return
	}

	rec.Sync.Status = syncFailed
	rec.LastError = failure
	rec.UpdatedAt = time.Now().UTC()
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		log.Printf("store sync failure for chart %s: %v", chartID, err)
	}
}

// completeMerge applies the proposal on top of the current chart. The merge
// is flagged stale when the chart changed between snapshot and arrival.
func (s *Service) completeMerge(chartID string, seq, snapshotVersion int64, proposal seating.Proposal) {
	lock := s.chartLock(chartID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := storeCtx()
	defer cancel()

	rec, err := s.charts.Get(ctx, chartID)
	if err != nil {
		return
	}
	if rec.Sync.Seq != seq || !isInFlight(rec.Sync.Status) {
		// Canceled or superseded while the response was in the air.
		return
	}

	chart := seating.FromState(rec.Chart)
	stale := chart.Version() != snapshotVersion
	chart.ApplyMerge(proposal)

	rec.Chart = chart.State()
	rec.Sync.Status = syncMerged
	rec.Sync.Stale = stale
	rec.LastError = nil
	rec.UpdatedAt = time.Now().UTC()
	if err := s.charts.Put(ctx, chartID, rec); err != nil {
		log.Printf("store merged chart %s: %v", chartID, err)
	}
}

func isInFlight(status string) bool {
	return status == syncRequesting || status == syncRetrying || status == syncParsing
}

// chartPayload is the canonical chart response body.
func chartPayload(chartID string, rec session.Record) map[string]any {
	payload := map[string]any{
		"id":          chartID,
		"grid":        map[string]any{"rows": rec.Chart.Rows, "cols": rec.Chart.Cols},
		"desks":       rec.Chart.Desks,
		"assignments": rec.Chart.Assignments,
		"metadata":    rec.Chart.Metadata,
		"settings":    rec.Chart.Settings,
		"version":     rec.Chart.Version,
		"sync": map[string]any{
			"status":  rec.Sync.Status,
			"attempt": rec.Sync.Attempt,
			"stale":   rec.Sync.Stale,
		},
		"updatedAt": rec.UpdatedAt,
	}
	if rec.LastError != nil {
		payload["lastError"] = map[string]any{
			"code":    rec.LastError.Code,
			"message": rec.LastError.Message,
		}
	} else {
		payload["lastError"] = nil
	}
	return payload
}
