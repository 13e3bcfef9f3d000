package service

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/pkg/pdfutil"
)

// QPSource is one uploaded question paper resolved for a subject.
type QPSource struct {
	Code string
	Data []byte
}

// missError marks a non-fatal resolution gap: the affected subject is
// skipped with a warning while the rest of the room proceeds.
type missError struct {
	reason string
}

func (e *missError) Error() string {
	return e.reason
}

// MappingResolver resolves a subject to its uploaded PDF through the QP
// mapping table: first mapping row whose subject matches wins.
type MappingResolver struct {
	entries  []models.QPMappingEntry
	subjects []string
	uploads  map[string][]byte
	matcher  SubjectMatcher
}

// NewMappingResolver normalizes the mapping table and returns the resolver
// plus data-quality warnings for duplicate subject rows.
func NewMappingResolver(mapping []models.QPMappingEntry, uploads map[string][]byte, matcher SubjectMatcher) (*MappingResolver, []string) {
	if matcher == nil {
		matcher = ExactMatcher{}
	}

	entries := make([]models.QPMappingEntry, 0, len(mapping))
	subjects := make([]string, 0, len(mapping))
	seen := make(map[string]struct{}, len(mapping))
	warnings := make([]string, 0)

	for _, entry := range mapping {
		normalized := models.QPMappingEntry{
			QPCode:  Normalize(entry.QPCode),
			Subject: Normalize(entry.Subject),
		}
		if normalized.Subject == "" {
			continue
		}
		entries = append(entries, normalized)
		if _, dup := seen[normalized.Subject]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate mapping rows for subject '%s'; first match wins", normalized.Subject))
			continue
		}
		seen[normalized.Subject] = struct{}{}
		subjects = append(subjects, normalized.Subject)
	}

	return &MappingResolver{
		entries:  entries,
		subjects: subjects,
		uploads:  uploads,
		matcher:  matcher,
	}, warnings
}

// Resolve returns the uploaded PDF for the subject. On an upload miss the
// returned source still carries the mapped code so callers can report it.
func (r *MappingResolver) Resolve(subject string) (QPSource, error) {
	matched, ok := r.matcher.Match(subject, r.subjects)
	if !ok {
		return QPSource{}, &missError{reason: fmt.Sprintf("no QP code found for subject '%s'", subject)}
	}
	code := ""
	for _, entry := range r.entries {
		if entry.Subject == matched {
			code = entry.QPCode
			break
		}
	}
	data, ok := r.uploads[code]
	if !ok {
		return QPSource{Code: code}, &missError{reason: fmt.Sprintf("no uploaded PDF found for QP code '%s' (subject %s)", code, subject)}
	}
	return QPSource{Code: code, Data: data}, nil
}

// ContentClassifier resolves the mapping entry an uploaded PDF belongs to
// from its first-page text, for uploads whose filename is not a QP code.
type ContentClassifier struct {
	matcher SubjectMatcher
	extract func([]byte) (string, error)
}

// NewContentClassifier builds a classifier; matcher defaults to the fuzzy
// strategy since extracted text rarely matches exactly.
func NewContentClassifier(matcher SubjectMatcher) *ContentClassifier {
	if matcher == nil {
		matcher = NewFuzzyMatcher(0)
	}
	return &ContentClassifier{matcher: matcher, extract: pdfutil.FirstPageText}
}

// Classify returns the first mapping entry whose subject matches a line of
// the document's first page.
func (c *ContentClassifier) Classify(data []byte, mapping []models.QPMappingEntry) (models.QPMappingEntry, bool) {
	text, err := c.extract(data)
	if err != nil || text == "" {
		return models.QPMappingEntry{}, false
	}

	subjects := make([]string, 0, len(mapping))
	for _, entry := range mapping {
		if subject := Normalize(entry.Subject); subject != "" {
			subjects = append(subjects, subject)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		matched, ok := c.matcher.Match(line, subjects)
		if !ok {
			continue
		}
		for _, entry := range mapping {
			if Normalize(entry.Subject) == matched {
				return models.QPMappingEntry{QPCode: Normalize(entry.QPCode), Subject: matched}, true
			}
		}
	}
	return models.QPMappingEntry{}, false
}

// BundleService assembles per-room question paper bundles: one full copy
// of the source PDF per seated student needing that paper.
type BundleService struct {
	matcher        SubjectMatcher
	maxSourcePages int
	logger         *zap.Logger
}

// NewBundleService builds a BundleService. maxSourcePages of zero disables
// the per-subject page ceiling.
func NewBundleService(matcher SubjectMatcher, maxSourcePages int, logger *zap.Logger) *BundleService {
	if matcher == nil {
		matcher = ExactMatcher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BundleService{matcher: matcher, maxSourcePages: maxSourcePages, logger: logger}
}

// Assemble builds one merged PDF per room from the demand detail rows.
// Resolution gaps degrade to warnings; rooms with zero resolved pages are
// absent from the output map. The audit summary carries per-room totals
// and the set difference of required versus uploaded QP codes.
func (s *BundleService) Assemble(mapping []models.QPMappingEntry, detail []models.QPDemandRecord, uploads map[string][]byte, orderedRoomIDs []string) (*models.BundleResult, error) {
	resolver, warnings := NewMappingResolver(mapping, uploads, s.matcher)

	result := &models.BundleResult{
		RoomPDFs:       make(map[string][]byte),
		Summary:        make([]models.RoomQPSummaryRow, 0),
		MissingQPCodes: make([]string, 0),
		Warnings:       warnings,
	}
	missingCodes := make(map[string]struct{})

	for _, room := range uniqueInOrder(orderedRoomIDs) {
		subjects, counts := subjectCounts(detail, room)
		if len(subjects) == 0 {
			continue
		}

		sources := make([]pdfutil.RepeatedSource, 0, len(subjects))
		rows := make([]models.RoomQPSummaryRow, 0, len(subjects))
		roomTotal := 0

		for i, subject := range subjects {
			count := counts[i]
			source, err := resolver.Resolve(subject)
			if err != nil {
				if source.Code != "" {
					missingCodes[source.Code] = struct{}{}
				}
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s (room %s)", err, room))
				continue
			}
			if s.maxSourcePages > 0 {
				pages, err := pdfutil.PageCount(source.Data)
				if err != nil {
					result.Warnings = append(result.Warnings, fmt.Sprintf("unreadable PDF for QP code '%s' (room %s): %v", source.Code, room, err))
					continue
				}
				if pages*count > s.maxSourcePages {
					result.Warnings = append(result.Warnings, fmt.Sprintf("QP code '%s' exceeds the page limit for room %s (%d pages x %d copies)", source.Code, room, pages, count))
					continue
				}
			}
			sources = append(sources, pdfutil.RepeatedSource{Data: source.Data, Copies: count})
			rows = append(rows, models.RoomQPSummaryRow{
				RoomID:   room,
				Subject:  subject,
				QPCode:   source.Code,
				Students: count,
			})
			roomTotal += count
		}

		merged, err := pdfutil.MergeRepeated(sources)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to assemble bundle for room %s: %v", room, err))
			continue
		}
		if len(merged) == 0 {
			continue
		}

		result.RoomPDFs[room] = merged
		for i := range rows {
			rows[i].TotalStudents = roomTotal
		}
		result.Summary = append(result.Summary, rows...)
		s.logger.Debug("room bundle assembled",
			zap.String("room", room),
			zap.Int("subjects", len(rows)),
			zap.Int("students", roomTotal),
		)
	}

	for code := range missingCodes {
		result.MissingQPCodes = append(result.MissingQPCodes, code)
	}
	sort.Strings(result.MissingQPCodes)

	return result, nil
}

// subjectCounts tallies demand rows per subject for one room, keeping the
// first-seen order of the detail rows.
func subjectCounts(detail []models.QPDemandRecord, room string) ([]string, []int) {
	subjects := make([]string, 0)
	counts := make([]int, 0)
	index := make(map[string]int)
	for _, record := range detail {
		if record.RoomID != room {
			continue
		}
		i, ok := index[record.Subject]
		if !ok {
			i = len(subjects)
			index[record.Subject] = i
			subjects = append(subjects, record.Subject)
			counts = append(counts, 0)
		}
		counts[i]++
	}
	return subjects, counts
}
