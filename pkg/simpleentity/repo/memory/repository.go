package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// Repository implements simpleentity.Repository using in-memory storage
type Repository struct {
	mu            sync.RWMutex
	vocabularies  map[string]*simpleentity.Vocabulary
	terms         map[uuid.UUID]*simpleentity.Term
	nodes         map[uuid.UUID]*simpleentity.Node
	paragraphs    map[uuid.UUID]*simpleentity.Paragraph
	fieldStorages map[string]*simpleentity.FieldStorage    // "entity_type:field" -> storage
	fieldDefs     map[string]*simpleentity.FieldDefinition // "entity_type:bundle:field" -> definition
}

// New creates a new in-memory repository
func New() simpleentity.Repository {
	return &Repository{
		vocabularies:  make(map[string]*simpleentity.Vocabulary),
		terms:         make(map[uuid.UUID]*simpleentity.Term),
		nodes:         make(map[uuid.UUID]*simpleentity.Node),
		paragraphs:    make(map[uuid.UUID]*simpleentity.Paragraph),
		fieldStorages: make(map[string]*simpleentity.FieldStorage),
		fieldDefs:     make(map[string]*simpleentity.FieldDefinition),
	}
}

func storageKey(entityType, fieldName string) string {
	return entityType + ":" + fieldName
}

func definitionKey(entityType, bundle, fieldName string) string {
	return entityType + ":" + bundle + ":" + fieldName
}

// Vocabulary operations

func (r *Repository) CreateVocabulary(ctx context.Context, vocabulary *simpleentity.Vocabulary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.vocabularies[vocabulary.ID]; exists {
		return simpleentity.ErrVocabularyExists
	}

	vocabularyCopy := *vocabulary
	r.vocabularies[vocabulary.ID] = &vocabularyCopy
	return nil
}

func (r *Repository) GetVocabulary(ctx context.Context, id string) (*simpleentity.Vocabulary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vocabulary, exists := r.vocabularies[id]
	if !exists {
		return nil, simpleentity.ErrVocabularyNotFound
	}
	vocabularyCopy := *vocabulary
	return &vocabularyCopy, nil
}

func (r *Repository) ListVocabularies(ctx context.Context) ([]*simpleentity.Vocabulary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleentity.Vocabulary
	for _, vocabulary := range r.vocabularies {
		vocabularyCopy := *vocabulary
		result = append(result, &vocabularyCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Term operations

func (r *Repository) CreateTerm(ctx context.Context, term *simpleentity.Term) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.vocabularies[term.VocabularyID]; !exists {
		return simpleentity.ErrVocabularyNotFound
	}
	if _, exists := r.terms[term.ID]; exists {
		return simpleentity.ErrTermExists
	}

	termCopy := *term
	r.terms[term.ID] = &termCopy
	return nil
}

func (r *Repository) GetTerm(ctx context.Context, id uuid.UUID) (*simpleentity.Term, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term, exists := r.terms[id]
	if !exists {
		return nil, simpleentity.ErrTermNotFound
	}
	termCopy := *term
	return &termCopy, nil
}

func (r *Repository) FindTerms(ctx context.Context, query simpleentity.TermQuery) ([]*simpleentity.Term, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleentity.Term
	for _, term := range r.terms {
		if query.Matches(term) {
			termCopy := *term
			result = append(result, &termCopy)
		}
	}

	// Oldest first; ties broken by id so repeated lookups agree
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (r *Repository) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.terms[id]; !exists {
		return simpleentity.ErrTermNotFound
	}
	delete(r.terms, id)
	return nil
}

// Node operations

func (r *Repository) CreateNode(ctx context.Context, node *simpleentity.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateNodeFields(node); err != nil {
		return err
	}
	r.nodes[node.ID] = copyNode(node)
	return nil
}

func (r *Repository) GetNode(ctx context.Context, id uuid.UUID) (*simpleentity.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[id]
	if !exists {
		return nil, simpleentity.ErrNodeNotFound
	}
	return copyNode(node), nil
}

func (r *Repository) GetNodes(ctx context.Context, ids []uuid.UUID) ([]*simpleentity.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simpleentity.Node, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if node, exists := r.nodes[id]; exists {
			result = append(result, copyNode(node))
		}
	}
	return result, nil
}

func (r *Repository) UpdateNode(ctx context.Context, node *simpleentity.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID]; !exists {
		return simpleentity.ErrNodeNotFound
	}
	if err := r.validateNodeFields(node); err != nil {
		return err
	}
	r.nodes[node.ID] = copyNode(node)
	return nil
}

func (r *Repository) DeleteNode(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; !exists {
		return simpleentity.ErrNodeNotFound
	}
	delete(r.nodes, id)
	return nil
}

func (r *Repository) ListNodes(ctx context.Context, bundle string) ([]*simpleentity.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleentity.Node
	for _, node := range r.nodes {
		if bundle == "" || node.Bundle == bundle {
			result = append(result, copyNode(node))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// validateNodeFields must be called with the lock held.
func (r *Repository) validateNodeFields(node *simpleentity.Node) error {
	return simpleentity.ValidateNodeFields(r.definitionsLocked(simpleentity.EntityTypeNode, node.Bundle), node.Fields)
}

// Paragraph operations

func (r *Repository) CreateParagraph(ctx context.Context, paragraph *simpleentity.Paragraph) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	paragraphCopy := *paragraph
	paragraphCopy.Fields = copyFields(paragraph.Fields)
	r.paragraphs[paragraph.ID] = &paragraphCopy
	return nil
}

func (r *Repository) GetParagraph(ctx context.Context, id uuid.UUID) (*simpleentity.Paragraph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paragraph, exists := r.paragraphs[id]
	if !exists {
		return nil, simpleentity.ErrParagraphNotFound
	}
	paragraphCopy := *paragraph
	paragraphCopy.Fields = copyFields(paragraph.Fields)
	return &paragraphCopy, nil
}

func (r *Repository) DeleteParagraph(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.paragraphs[id]; !exists {
		return simpleentity.ErrParagraphNotFound
	}
	delete(r.paragraphs, id)
	return nil
}

// Field operations

func (r *Repository) CreateFieldStorage(ctx context.Context, storage *simpleentity.FieldStorage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := storageKey(storage.EntityType, storage.FieldName)
	if _, exists := r.fieldStorages[key]; exists {
		return simpleentity.ErrFieldExists
	}
	storageCopy := *storage
	r.fieldStorages[key] = &storageCopy
	return nil
}

func (r *Repository) GetFieldStorage(ctx context.Context, entityType, fieldName string) (*simpleentity.FieldStorage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	storage, exists := r.fieldStorages[storageKey(entityType, fieldName)]
	if !exists {
		return nil, simpleentity.ErrFieldNotFound
	}
	storageCopy := *storage
	return &storageCopy, nil
}

func (r *Repository) CreateFieldDefinition(ctx context.Context, def *simpleentity.FieldDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fieldStorages[storageKey(def.EntityType, def.FieldName)]; !exists {
		return simpleentity.ErrFieldNotFound
	}
	key := definitionKey(def.EntityType, def.Bundle, def.FieldName)
	if _, exists := r.fieldDefs[key]; exists {
		return simpleentity.ErrFieldExists
	}
	r.fieldDefs[key] = copyDefinition(def)
	return nil
}

func (r *Repository) GetFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) (*simpleentity.FieldDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.fieldDefs[definitionKey(entityType, bundle, fieldName)]
	if !exists {
		return nil, simpleentity.ErrFieldNotFound
	}
	return copyDefinition(def), nil
}

func (r *Repository) UpdateFieldDefinition(ctx context.Context, def *simpleentity.FieldDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := definitionKey(def.EntityType, def.Bundle, def.FieldName)
	if _, exists := r.fieldDefs[key]; !exists {
		return simpleentity.ErrFieldNotFound
	}
	r.fieldDefs[key] = copyDefinition(def)
	return nil
}

func (r *Repository) DeleteFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := definitionKey(entityType, bundle, fieldName)
	if _, exists := r.fieldDefs[key]; !exists {
		return simpleentity.ErrFieldNotFound
	}
	delete(r.fieldDefs, key)
	return nil
}

func (r *Repository) ListFieldDefinitions(ctx context.Context, entityType, bundle string) ([]*simpleentity.FieldDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.definitionsLocked(entityType, bundle), nil
}

func (r *Repository) definitionsLocked(entityType, bundle string) []*simpleentity.FieldDefinition {
	var result []*simpleentity.FieldDefinition
	for _, def := range r.fieldDefs {
		if def.EntityType == entityType && def.Bundle == bundle {
			result = append(result, copyDefinition(def))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FieldName < result[j].FieldName
	})
	return result
}

// Helper functions

func copyFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func copyNode(node *simpleentity.Node) *simpleentity.Node {
	nodeCopy := *node
	nodeCopy.Fields = copyFields(node.Fields)
	return &nodeCopy
}

func copyDefinition(def *simpleentity.FieldDefinition) *simpleentity.FieldDefinition {
	defCopy := *def
	defCopy.Settings = copyFields(def.Settings)
	return &defCopy
}
