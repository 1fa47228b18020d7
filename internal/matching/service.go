package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotafrete/freight-marketplace/pkg/common"
	"github.com/rotafrete/freight-marketplace/pkg/logger"
	redisClient "github.com/rotafrete/freight-marketplace/pkg/redis"
	"go.uber.org/zap"
)

var (
	matchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_runs_total",
			Help: "Matching runs by outcome.",
		},
		[]string{"outcome"},
	)

	matchesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_matches_created_total",
			Help: "Match rows persisted per candidate kind.",
		},
		[]string{"kind"},
	)

	matchUpsertFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_upsert_failures_total",
			Help: "Match rows that failed to persist per candidate kind.",
		},
		[]string{"kind"},
	)
)

// Service runs coverage matching for one driver at a time. It holds no
// cross-invocation mutable state; concurrent runs for the same driver are an
// explicit caller obligation to avoid (last insert wins).
type Service struct {
	coverageRepo  CoverageRepository
	candidateRepo CandidateRepository
	matchRepo     MatchRepository
	publisher     EventPublisher
	cache         redisClient.ClientInterface
	config        Config
}

// NewService creates a new matching service. Publisher and cache are
// optional; the service degrades to running without them.
func NewService(
	coverageRepo CoverageRepository,
	candidateRepo CandidateRepository,
	matchRepo MatchRepository,
	publisher EventPublisher,
	cache redisClient.ClientInterface,
	config Config,
) *Service {
	return &Service{
		coverageRepo:  coverageRepo,
		candidateRepo: candidateRepo,
		matchRepo:     matchRepo,
		publisher:     publisher,
		cache:         cache,
		config:        config,
	}
}

// RunMatchingForDriver recomputes the driver's entire match set.
//
// The persisted set is a full snapshot: the driver's previous rows are
// deleted and the new batch inserted inside one transaction, so a failure
// mid-replace rolls back to the previous set. Read failures abort before any
// write. Only the repository's row-by-row degradation can leave a partial
// set, and it reports per-row counts instead of failing.
func (s *Service) RunMatchingForDriver(ctx context.Context, driverID uuid.UUID) (*RunResult, error) {
	areas, err := s.coverageRepo.ListActiveAreas(ctx, driverID)
	if err != nil {
		return nil, s.failRun(ctx, driverID, "list coverage areas", err)
	}

	eligible := eligibleAreas(areas)
	if len(eligible) == 0 {
		// A driver with no declared coverage matches nothing: clear and
		// return empty rather than failing open.
		if err := s.matchRepo.ClearDriverMatches(ctx, driverID); err != nil {
			return nil, s.failRun(ctx, driverID, "clear matches", err)
		}
		s.invalidateCache(ctx, driverID)
		matchingRunsTotal.WithLabelValues("empty_coverage").Inc()
		logger.InfoContext(ctx, "matching run with no active coverage areas",
			zap.String("driver_id", driverID.String()))
		return s.emptyRunResult(), nil
	}

	// Both reads happen before any write so a fetch failure aborts with the
	// previous match set intact.
	freights, err := s.candidateRepo.ListOpenFreights(ctx, s.config.CandidatePageSize)
	if err != nil {
		return nil, s.failRun(ctx, driverID, "list open freights", err)
	}
	serviceRequests, err := s.candidateRepo.ListOpenServiceRequests(ctx, s.config.CandidatePageSize, s.config.UrbanServiceTypes)
	if err != nil {
		return nil, s.failRun(ctx, driverID, "list open service requests", err)
	}

	freightRows := s.computeMatches(driverID, freights, eligible)
	serviceRows := s.computeMatches(driverID, serviceRequests, eligible)

	freightResult, serviceResult, err := s.matchRepo.ReplaceDriverMatches(ctx, driverID, freightRows, serviceRows)
	if err != nil {
		return nil, s.failRun(ctx, driverID, "replace matches", err)
	}

	matchesCreatedTotal.WithLabelValues(string(CandidateFreight)).Add(float64(freightResult.Succeeded))
	matchesCreatedTotal.WithLabelValues(string(CandidateServiceRequest)).Add(float64(serviceResult.Succeeded))
	matchUpsertFailuresTotal.WithLabelValues(string(CandidateFreight)).Add(float64(freightResult.Failed))
	matchUpsertFailuresTotal.WithLabelValues(string(CandidateServiceRequest)).Add(float64(serviceResult.Failed))

	current, err := s.matchRepo.ListOpenMatches(ctx, driverID)
	if err != nil {
		return nil, s.failRun(ctx, driverID, "read current matches", err)
	}

	s.invalidateCache(ctx, driverID)
	s.publishCompleted(ctx, driverID, freightResult.Succeeded, serviceResult.Succeeded)
	matchingRunsTotal.WithLabelValues("completed").Inc()

	logger.InfoContext(ctx, "matching run completed",
		zap.String("driver_id", driverID.String()),
		zap.Int("areas", len(eligible)),
		zap.Int("freights_checked", len(freights)),
		zap.Int("service_requests_checked", len(serviceRequests)),
		zap.Int("freight_matches", freightResult.Succeeded),
		zap.Int("service_request_matches", serviceResult.Succeeded),
		zap.Int("failed_rows", freightResult.Failed+serviceResult.Failed),
	)

	return &RunResult{
		Matches:         current,
		Freights:        current.Freights,
		ServiceRequests: current.ServiceRequests,
		Created: &RunCreated{
			FreightMatches:        freightResult.Succeeded,
			ServiceRequestMatches: serviceResult.Succeeded,
		},
		Processed: &RunProcessed{
			FreightsChecked:        len(freights),
			ServiceRequestsChecked: len(serviceRequests),
		},
	}, nil
}

// FetchCurrentMatches returns the driver's persisted matches joined to their
// candidates, filtered to still-open candidates. Responses are cached
// briefly; every run invalidates the cache.
func (s *Service) FetchCurrentMatches(ctx context.Context, driverID uuid.UUID) (*RunResult, error) {
	if cached := s.cachedMatches(ctx, driverID); cached != nil {
		return cached, nil
	}

	current, err := s.matchRepo.ListOpenMatches(ctx, driverID)
	if err != nil {
		return nil, common.NewUnavailableError("matching temporarily unavailable, please retry",
			fmt.Errorf("read current matches: %w", err))
	}

	result := &RunResult{
		Matches:         current,
		Freights:        current.Freights,
		ServiceRequests: current.ServiceRequests,
	}
	s.storeCache(ctx, driverID, result)
	return result, nil
}

func (s *Service) computeMatches(driverID uuid.UUID, candidates []Candidate, areas []CoverageArea) []MatchRecord {
	rows := make([]MatchRecord, 0, len(candidates))
	for _, c := range candidates {
		if record := findBestMatch(driverID, c, areas, s.config); record != nil {
			rows = append(rows, *record)
		}
	}
	return rows
}

func (s *Service) emptyRunResult() *RunResult {
	return &RunResult{
		Matches: &CurrentMatches{
			FreightMatches:        []MatchRecord{},
			ServiceRequestMatches: []MatchRecord{},
			Freights:              []Candidate{},
			ServiceRequests:       []Candidate{},
		},
		Freights:        []Candidate{},
		ServiceRequests: []Candidate{},
		Created:         &RunCreated{},
		Processed:       &RunProcessed{},
	}
}

// failRun records the failure metric, emits a best-effort failure event and
// wraps the cause for the caller.
func (s *Service) failRun(ctx context.Context, driverID uuid.UUID, stage string, err error) error {
	matchingRunsTotal.WithLabelValues("failed").Inc()
	s.publishFailed(ctx, driverID, stage)
	return common.NewUnavailableError("matching temporarily unavailable, please retry",
		fmt.Errorf("%s: %w", stage, err))
}

func (s *Service) publishFailed(ctx context.Context, driverID uuid.UUID, reason string) {
	if s.publisher == nil {
		return
	}
	event := MatchingFailedEvent{
		DriverID: driverID,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishRunFailed(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish matching failed event",
			zap.String("driver_id", driverID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) publishCompleted(ctx context.Context, driverID uuid.UUID, freightMatches, serviceMatches int) {
	if s.publisher == nil {
		return
	}
	event := MatchingCompletedEvent{
		DriverID:              driverID,
		FreightMatches:        freightMatches,
		ServiceRequestMatches: serviceMatches,
		CompletedAt:           time.Now().UTC(),
	}
	if err := s.publisher.PublishRunCompleted(ctx, event); err != nil {
		// Downstream notification is best-effort; the run itself succeeded.
		logger.WarnContext(ctx, "failed to publish matching completed event",
			zap.String("driver_id", driverID.String()),
			zap.Error(err),
		)
	}
}

func matchesCacheKey(driverID uuid.UUID) string {
	return fmt.Sprintf("matching:current:%s", driverID.String())
}

func (s *Service) cachedMatches(ctx context.Context, driverID uuid.UUID) *RunResult {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.GetString(ctx, matchesCacheKey(driverID))
	if err != nil || raw == "" {
		return nil
	}
	var result RunResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	return &result
}

func (s *Service) storeCache(ctx context.Context, driverID uuid.UUID, result *RunResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	ttl := s.config.MatchesCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.cache.SetWithExpiration(ctx, matchesCacheKey(driverID), string(data), ttl); err != nil {
		logger.WarnContext(ctx, "failed to cache current matches", zap.Error(err))
	}
}

func (s *Service) invalidateCache(ctx context.Context, driverID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, matchesCacheKey(driverID)); err != nil {
		logger.WarnContext(ctx, "failed to invalidate matches cache", zap.Error(err))
	}
}
