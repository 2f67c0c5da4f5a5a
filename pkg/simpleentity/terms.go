package simpleentity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Vocabulary operations

func (s *service) CreateVocabulary(ctx context.Context, req CreateVocabularyRequest) (*Vocabulary, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: vocabulary id is required", ErrInvalidArgument)
	}
	name := req.Name
	if name == "" {
		name = req.ID
	}

	now := time.Now().UTC()
	vocabulary := &Vocabulary{
		ID:          req.ID,
		Name:        name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repository.CreateVocabulary(ctx, vocabulary); err != nil {
		return nil, fmt.Errorf("create vocabulary %s: %w", req.ID, err)
	}

	s.reportStatus(ctx, fmt.Sprintf("Created vocabulary %s.", vocabulary.Name), "vocabulary_id", vocabulary.ID)
	return vocabulary, nil
}

func (s *service) GetVocabulary(ctx context.Context, id string) (*Vocabulary, error) {
	return s.repository.GetVocabulary(ctx, id)
}

func (s *service) ListVocabularies(ctx context.Context) ([]*Vocabulary, error) {
	return s.repository.ListVocabularies(ctx)
}

// Term operations

// ResolveTerm returns the id of the first term named name in the
// vocabulary, creating the term when there is none.
func (s *service) ResolveTerm(ctx context.Context, vocabularyID, name string) (uuid.UUID, error) {
	if err := checkTermArgs(vocabularyID, name); err != nil {
		return uuid.Nil, err
	}

	existing, err := s.findTerm(ctx, vocabularyID, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrTermNotFound) {
		return uuid.Nil, &TermError{VocabularyID: vocabularyID, Name: name, Op: "resolve", Err: err}
	}

	term, err := s.insertTerm(ctx, CreateTermRequest{VocabularyID: vocabularyID, Name: name})
	if err != nil {
		return uuid.Nil, &TermError{VocabularyID: vocabularyID, Name: name, Op: "resolve", Err: err}
	}
	return term.ID, nil
}

// CreateTerm creates a term and fails with ErrTermExists when the
// vocabulary already has a term with that name.
func (s *service) CreateTerm(ctx context.Context, req CreateTermRequest) (*Term, error) {
	if err := checkTermArgs(req.VocabularyID, req.Name); err != nil {
		return nil, err
	}

	_, err := s.findTerm(ctx, req.VocabularyID, req.Name)
	if err == nil {
		return nil, &TermError{VocabularyID: req.VocabularyID, Name: req.Name, Op: "create", Err: ErrTermExists}
	}
	if !errors.Is(err, ErrTermNotFound) {
		return nil, &TermError{VocabularyID: req.VocabularyID, Name: req.Name, Op: "create", Err: err}
	}

	term, err := s.insertTerm(ctx, req)
	if err != nil {
		return nil, &TermError{VocabularyID: req.VocabularyID, Name: req.Name, Op: "create", Err: err}
	}
	return term, nil
}

// DeleteTerm deletes the first term matching (vocabulary, name). It
// returns false without deleting anything when no term matches.
func (s *service) DeleteTerm(ctx context.Context, vocabularyID, name string) (bool, error) {
	if err := checkTermArgs(vocabularyID, name); err != nil {
		return false, err
	}

	term, err := s.findTerm(ctx, vocabularyID, name)
	if errors.Is(err, ErrTermNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &TermError{VocabularyID: vocabularyID, Name: name, Op: "delete", Err: err}
	}

	if err := s.repository.DeleteTerm(ctx, term.ID); err != nil {
		return false, &TermError{VocabularyID: vocabularyID, Name: name, Op: "delete", Err: err}
	}

	s.logger.InfoContext(ctx, "Deleted term", "term_id", term.ID, "vocabulary_id", vocabularyID, "name", name)
	s.fire(ctx, "term_deleted", func(sink EventSink) error { return sink.TermDeleted(ctx, term) })
	return true, nil
}

func (s *service) ListTerms(ctx context.Context, vocabularyID string) ([]*Term, error) {
	if vocabularyID == "" {
		return nil, fmt.Errorf("%w: vocabulary id is required", ErrInvalidArgument)
	}
	return s.repository.FindTerms(ctx, TermQuery{VocabularyID: vocabularyID})
}

func (s *service) GetTermID(ctx context.Context, vocabularyID, name string) (uuid.UUID, error) {
	if err := checkTermArgs(vocabularyID, name); err != nil {
		return uuid.Nil, err
	}
	term, err := s.findTerm(ctx, vocabularyID, name)
	if err != nil {
		return uuid.Nil, err
	}
	return term.ID, nil
}

func (s *service) GetTermName(ctx context.Context, id uuid.UUID) (string, error) {
	term, err := s.repository.GetTerm(ctx, id)
	if err != nil {
		return "", err
	}
	return term.Name, nil
}

// findTerm returns the first term matching (vocabulary, name) or ErrTermNotFound.
func (s *service) findTerm(ctx context.Context, vocabularyID, name string) (*Term, error) {
	terms, err := s.repository.FindTerms(ctx, TermQuery{VocabularyID: vocabularyID, Name: name})
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, ErrTermNotFound
	}
	return terms[0], nil
}

// insertTerm persists a new term under a fresh id and reports it.
func (s *service) insertTerm(ctx context.Context, req CreateTermRequest) (*Term, error) {
	now := time.Now().UTC()
	term := &Term{
		ID:           uuid.New(),
		VocabularyID: req.VocabularyID,
		Name:         req.Name,
		Description:  req.Description,
		Weight:       req.Weight,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repository.CreateTerm(ctx, term); err != nil {
		return nil, err
	}

	s.reportStatus(ctx, fmt.Sprintf("Created new term %s.", term.Name),
		"term_id", term.ID, "vocabulary_id", term.VocabularyID)
	s.fire(ctx, "term_created", func(sink EventSink) error { return sink.TermCreated(ctx, term) })
	return term, nil
}

func checkTermArgs(vocabularyID, name string) error {
	if vocabularyID == "" {
		return fmt.Errorf("%w: vocabulary id is required", ErrInvalidArgument)
	}
	if name == "" {
		return fmt.Errorf("%w: term name is required", ErrInvalidArgument)
	}
	return nil
}
