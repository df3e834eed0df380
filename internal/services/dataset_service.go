package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"eph-processor/internal/config"
	"eph-processor/internal/logging"
	"eph-processor/internal/models"
)

// ErrUpdateInProgress is returned when Update is called while another update runs.
var ErrUpdateInProgress = errors.New("dataset update already in progress")

// UpdateResult describes one completed dataset update.
type UpdateResult struct {
	RunID       string          `json:"run_id"`
	Households  MergeStats      `json:"households"`
	Individuals MergeStats      `json:"individuals"`
	Coverage    models.Coverage `json:"coverage"`
	Duration    time.Duration   `json:"duration_ns"`
}

// DatasetStatus reports what the updated files currently hold.
type DatasetStatus struct {
	Ready       bool             `json:"ready"`
	Households  *models.Coverage `json:"households,omitempty"`
	Individuals *models.Coverage `json:"individuals,omitempty"`
}

// DatasetService runs the merge and classification job and serves the
// classified records to readers. Records are loaded lazily from the updated
// files and kept until the next update.
type DatasetService struct {
	cfg    *config.Config
	logger *zap.Logger

	updateMu sync.Mutex

	cacheMu     sync.Mutex
	households  *models.Households
	individuals *models.Individuals
}

// NewDatasetService creates a DatasetService over the files named by cfg.
func NewDatasetService(cfg *config.Config, logger *zap.Logger) *DatasetService {
	return &DatasetService{cfg: cfg, logger: logging.OrNop(logger)}
}

// Update merges the raw period files, classifies both entities and replaces
// the fused and updated files of both together. Only one update runs at a
// time; a concurrent call gets ErrUpdateInProgress. If any period folder
// lacks an entity file, or either entity fails to merge or classify, nothing
// is replaced; missing files are reported as a *MissingFilesError.
func (s *DatasetService) Update(ctx context.Context, progress MergeProgress) (*UpdateResult, error) {
	if !s.updateMu.TryLock() {
		return nil, ErrUpdateInProgress
	}
	defer s.updateMu.Unlock()

	start := time.Now()
	res := &UpdateResult{RunID: uuid.NewString()}
	logger := s.logger.With(zap.String("run_id", res.RunID))
	logger.Info("Dataset update started", zap.String("raw_dir", s.cfg.RawDir()))

	prefixes := []string{s.cfg.Files.HouseholdPrefix, s.cfg.Files.IndividualPrefix}
	missing, err := MissingFiles(s.cfg.RawDir(), prefixes...)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		logger.Warn("Dataset update aborted", zap.Strings("missing", missing))
		return nil, &MissingFilesError{Messages: missing}
	}

	fusionDir := filepath.Dir(s.cfg.FusionPath(config.HouseholdsFused))
	if err := os.MkdirAll(fusionDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating directory %s", fusionDir)
	}
	staging, err := os.MkdirTemp(fusionDir, ".update-*")
	if err != nil {
		return nil, errors.Wrap(err, "error creating staging directory")
	}
	defer os.RemoveAll(staging)

	// Both entities are merged and classified into staging first, so a
	// failure in either leaves the published files untouched.
	jobs := []struct {
		prefix   string
		fused    string
		updated  string
		stats    *MergeStats
		classify func(*Table) (*Table, error)
	}{
		{s.cfg.Files.HouseholdPrefix, config.HouseholdsFused, config.HouseholdsFusedUpdated, &res.Households, ClassifyHouseholds},
		{s.cfg.Files.IndividualPrefix, config.IndividualsFused, config.IndividualsFusedUpdated, &res.Individuals, ClassifyIndividuals},
	}
	var publish []string
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "dataset update cancelled")
		}
		fused := filepath.Join(staging, job.fused)
		stats, err := MergeFiles(job.prefix, s.cfg.RawDir(), fused, progress)
		if err != nil {
			return nil, errors.Wrapf(err, "error merging %s files", job.prefix)
		}
		*job.stats = stats
		logger.Info("Merged survey files",
			zap.String("prefix", job.prefix),
			zap.Int("files", stats.Files),
			zap.Int("rows", stats.Rows))

		table, err := ReadTable(fused)
		if err != nil {
			return nil, err
		}
		if table.Skipped > 0 {
			logger.Warn("Skipped malformed rows", zap.String("file", job.fused), zap.Int("rows", table.Skipped))
		}
		classified, err := job.classify(table)
		if err != nil {
			return nil, errors.Wrapf(err, "error classifying %s", job.fused)
		}
		if err := classified.WriteFile(filepath.Join(staging, job.updated)); err != nil {
			return nil, err
		}
		publish = append(publish, job.fused, job.updated)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "dataset update cancelled")
	}

	for _, name := range publish {
		if err := os.Rename(filepath.Join(staging, name), s.cfg.FusionPath(name)); err != nil {
			s.invalidate()
			return nil, errors.Wrapf(err, "error replacing %s", name)
		}
	}
	s.invalidate()

	if inds, err := s.Individuals(); err == nil {
		if cov, err := Coverage(IndividualPeriods(inds)); err == nil {
			res.Coverage = cov
		}
	}
	res.Duration = time.Since(start)
	logger.Info("Dataset update finished",
		zap.Int("households", res.Households.Rows),
		zap.Int("individuals", res.Individuals.Rows),
		zap.String("from", res.Coverage.From),
		zap.String("to", res.Coverage.To),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (s *DatasetService) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.households = nil
	s.individuals = nil
}

func (s *DatasetService) loadTable(name string) (*Table, error) {
	path := s.cfg.FusionPath(name)
	table, err := ReadTable(path)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, errors.Wrapf(ErrNoData, "%s not found, run a dataset update", name)
		}
		return nil, err
	}
	if table.Skipped > 0 {
		s.logger.Warn("Skipped malformed rows", zap.String("file", name), zap.Int("rows", table.Skipped))
	}
	return table, nil
}

// Households returns the classified household records.
func (s *DatasetService) Households() (*models.Households, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.households != nil {
		return s.households, nil
	}
	table, err := s.loadTable(config.HouseholdsFusedUpdated)
	if err != nil {
		return nil, err
	}
	hhs, dropped, err := ParseHouseholds(table)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger.Warn("Dropped household rows with an invalid period", zap.Int("rows", dropped))
	}
	s.households = hhs
	return hhs, nil
}

// Individuals returns the classified individual records.
func (s *DatasetService) Individuals() (*models.Individuals, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.individuals != nil {
		return s.individuals, nil
	}
	table, err := s.loadTable(config.IndividualsFusedUpdated)
	if err != nil {
		return nil, err
	}
	inds, dropped, err := ParseIndividuals(table)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger.Warn("Dropped individual rows with an invalid period", zap.Int("rows", dropped))
	}
	s.individuals = inds
	return inds, nil
}

// Status reports the coverage of the updated files. A dataset that was
// never updated is not ready; that is not an error.
func (s *DatasetService) Status() (DatasetStatus, error) {
	var st DatasetStatus
	hhs, err := s.Households()
	if err != nil && !errors.Is(err, ErrNoData) {
		return st, err
	}
	if err == nil {
		if cov, err := Coverage(HouseholdPeriods(hhs)); err == nil {
			st.Households = &cov
		}
	}
	inds, err := s.Individuals()
	if err != nil && !errors.Is(err, ErrNoData) {
		return st, err
	}
	if err == nil {
		if cov, err := Coverage(IndividualPeriods(inds)); err == nil {
			st.Individuals = &cov
		}
	}
	st.Ready = st.Households != nil && st.Individuals != nil
	return st, nil
}
