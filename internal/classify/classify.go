// Package classify is the boundary to the externally trained image
// classifiers. The models themselves are served elsewhere; this package
// dispatches an image to the classifier registered for a waste category and
// normalizes the result to a label plus confidence.
package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nhartman/ecosort/internal/model"
)

// Category selects which label vocabulary (and which model) applies.
type Category string

const (
	GeneralWaste Category = "general_waste"
	Furniture    Category = "furniture"
)

// Labels is the per-category label vocabulary, index-aligned with the
// score vector the inference service returns.
var Labels = map[Category][]string{
	GeneralWaste: {"paper", "plastic", "metal", "glass", "cardboard", "trash"},
	Furniture:    {"chair", "table", "sofa", "shelf", "mattress"},
}

var (
	// ErrModelUnavailable means no classifier is registered for the
	// requested category.
	ErrModelUnavailable = errors.New("no classifier available for this category")
	// ErrUnknownCategory means the category name is not recognized at all.
	ErrUnknownCategory = errors.New("unknown category")
)

// ParseCategory validates a wire-format category name.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case GeneralWaste, Furniture:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Classifier labels a single image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (model.Prediction, error)
}

// Registry holds the classifier for each category that has one.
type Registry struct {
	mu          sync.RWMutex
	classifiers map[Category]Classifier
}

func NewRegistry() *Registry {
	return &Registry{classifiers: make(map[Category]Classifier)}
}

func (r *Registry) Register(cat Category, c Classifier) {
	r.mu.Lock()
	r.classifiers[cat] = c
	r.mu.Unlock()
}

// Available reports whether a classifier is registered for the category.
func (r *Registry) Available(cat Category) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classifiers[cat]
	return ok
}

// Classify dispatches the image to the category's classifier. It fails
// with ErrModelUnavailable when none is registered.
func (r *Registry) Classify(ctx context.Context, cat Category, image []byte) (model.Prediction, error) {
	r.mu.RLock()
	c, ok := r.classifiers[cat]
	r.mu.RUnlock()
	if !ok {
		return model.Prediction{}, ErrModelUnavailable
	}
	return c.Classify(ctx, image)
}
