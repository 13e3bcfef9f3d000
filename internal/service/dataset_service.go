package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
)

// datasetLoader loads the static data directory for a category.
type datasetLoader interface {
	Load(category string) (*models.Dataset, error)
}

// DatasetService holds the working dataset and applies ad-hoc uploads on
// top of it. All mutations replace whole pieces; the seating pipeline only
// ever sees a consistent snapshot.
type DatasetService struct {
	loader     datasetLoader
	classifier *ContentClassifier

	mu      sync.RWMutex
	current *models.Dataset

	logger *zap.Logger
}

// NewDatasetService builds a DatasetService. classifier may be nil, in
// which case uploads with unrecognized filenames keep their stem as code.
func NewDatasetService(loader datasetLoader, classifier *ContentClassifier, logger *zap.Logger) *DatasetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetService{loader: loader, classifier: classifier, logger: logger}
}

// Load replaces the working dataset with the on-disk data for the category.
func (s *DatasetService) Load(category string) (models.DatasetSummary, error) {
	dataset, err := s.loader.Load(category)
	if err != nil {
		return models.DatasetSummary{}, err
	}

	s.mu.Lock()
	s.current = dataset
	s.mu.Unlock()

	return dataset.Summarize(), nil
}

// Current returns the working dataset.
func (s *DatasetService) Current() (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, appErrors.ErrDatasetUnavailable
	}
	return s.current, nil
}

// Summary reports the working dataset's summary.
func (s *DatasetService) Summary() (models.DatasetSummary, error) {
	dataset, err := s.Current()
	if err != nil {
		return models.DatasetSummary{}, err
	}
	return dataset.Summarize(), nil
}

// ApplyRooms replaces the room capacity table from an uploaded workbook.
func (s *DatasetService) ApplyRooms(reader io.Reader) (models.DatasetSummary, error) {
	rooms, err := repository.ParseRoomsWorkbook(reader)
	if err != nil {
		return models.DatasetSummary{}, err
	}
	return s.mutate(func(d *models.Dataset) {
		d.Rooms = rooms
	})
}

// ApplyRoster replaces the roster rows that came from the same source
// file and appends the rest, so re-uploading a batch updates it in place.
func (s *DatasetService) ApplyRoster(reader io.Reader, filename string) (models.DatasetSummary, error) {
	var (
		records []models.StudentRecord
		err     error
	)
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		records, err = repository.ParseRosterCSV(reader, filename)
	} else {
		records, err = repository.ParseRosterWorkbook(reader, filename)
	}
	if err != nil {
		return models.DatasetSummary{}, err
	}
	if len(records) == 0 {
		return models.DatasetSummary{}, appErrors.Clone(appErrors.ErrValidation, "roster upload has no student rows")
	}

	source := records[0].SourceFile
	return s.mutate(func(d *models.Dataset) {
		kept := make([]models.StudentRecord, 0, len(d.Roster)+len(records))
		for _, record := range d.Roster {
			if record.SourceFile != source {
				kept = append(kept, record)
			}
		}
		d.Roster = append(kept, records...)
	})
}

// ApplyMapping replaces the QP code mapping from an uploaded workbook.
func (s *DatasetService) ApplyMapping(reader io.Reader) (models.DatasetSummary, error) {
	mapping, err := repository.ParseMappingWorkbook(reader)
	if err != nil {
		return models.DatasetSummary{}, err
	}
	return s.mutate(func(d *models.Dataset) {
		d.Mapping = mapping
	})
}

// ApplyTemplate replaces the remark sheet template.
func (s *DatasetService) ApplyTemplate(data []byte) (models.DatasetSummary, error) {
	if len(data) == 0 {
		return models.DatasetSummary{}, appErrors.Clone(appErrors.ErrValidation, "template upload is empty")
	}
	return s.mutate(func(d *models.Dataset) {
		d.Template = data
	})
}

// ApplyQPUpload stores an uploaded question paper PDF. The upper-cased
// filename stem is the QP code; when the stem is not in the mapping table
// and a classifier is available, the first page decides instead. The last
// upload for a code wins.
func (s *DatasetService) ApplyQPUpload(filename string, data []byte) (string, []string, error) {
	if len(data) == 0 {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "QP upload is empty")
	}

	code := Normalize(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	warnings := make([]string, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", nil, appErrors.ErrDatasetUnavailable
	}

	if !mappingHasCode(s.current.Mapping, code) && s.classifier != nil {
		if entry, ok := s.classifier.Classify(data, s.current.Mapping); ok {
			warnings = append(warnings, fmt.Sprintf("filename %q is not a known QP code; classified as %s (%s) from page content", filename, entry.QPCode, entry.Subject))
			code = entry.QPCode
		} else {
			warnings = append(warnings, fmt.Sprintf("filename %q is not a known QP code and its content matched no subject; kept as %s", filename, code))
		}
	}

	if s.current.QPFiles == nil {
		s.current.QPFiles = make(map[string][]byte)
	}
	if _, exists := s.current.QPFiles[code]; exists {
		warnings = append(warnings, fmt.Sprintf("replaced previously uploaded PDF for QP code %s", code))
	}
	s.current.QPFiles[code] = data

	s.logger.Info("QP upload stored", zap.String("code", code), zap.Int("bytes", len(data)))
	return code, warnings, nil
}

// BatchByClassNo derives the class-number to batch-name map for remark
// sheets from the roster's source files.
func (s *DatasetService) BatchByClassNo() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	batches := make(map[string]string, len(s.current.Roster))
	for _, record := range s.current.Roster {
		if record.SourceFile != "" {
			batches[record.ClassNo] = record.SourceFile
		}
	}
	return batches
}

func (s *DatasetService) mutate(apply func(*models.Dataset)) (models.DatasetSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		s.current = &models.Dataset{
			QPFiles:  make(map[string][]byte),
			LoadedAt: time.Now().UTC(),
		}
	}
	apply(s.current)
	return s.current.Summarize(), nil
}

func mappingHasCode(mapping []models.QPMappingEntry, code string) bool {
	for _, entry := range mapping {
		if Normalize(entry.QPCode) == code {
			return true
		}
	}
	return false
}
