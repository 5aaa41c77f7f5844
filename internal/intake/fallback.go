package intake

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

// StudioStore looks up studios and lists those that accept tickets.
type StudioStore interface {
	GetByID(ctx context.Context, id string) (*domain.Studio, error)
	ListActive(ctx context.Context) ([]domain.Studio, error)
}

// CategoryStore looks up categories and lists active top-level ones.
type CategoryStore interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListActiveRoots(ctx context.Context) ([]domain.Category, error)
}

// Placement is the studio/category pair a new ticket is filed under.
type Placement struct {
	StudioID   string
	CategoryID string
}

// FallbackResolver supplies the oldest active studio and category whenever a
// rule or manual request leaves one unset.
type FallbackResolver struct {
	studios    StudioStore
	categories CategoryStore
}

// NewFallbackResolver builds a resolver.
func NewFallbackResolver(studios StudioStore, categories CategoryStore) *FallbackResolver {
	return &FallbackResolver{studios: studios, categories: categories}
}

// Verify returns a field → reason map for each non-empty id that names no
// stored studio or category.
func (r *FallbackResolver) Verify(ctx context.Context, studioID, categoryID *string) (map[string]any, error) {
	problems := map[string]any{}
	if id := trimmed(studioID); id != "" {
		if _, err := r.studios.GetByID(ctx, id); apperrors.IsMissingRow(err) {
			problems["studioId"] = "unknown studio"
		} else if err != nil {
			return nil, err
		}
	}
	if id := trimmed(categoryID); id != "" {
		if _, err := r.categories.GetByID(ctx, id); apperrors.IsMissingRow(err) {
			problems["categoryId"] = "unknown category"
		} else if err != nil {
			return nil, err
		}
	}
	return problems, nil
}

// Resolve keeps any non-empty id it is given and fills the rest. It never
// returns a placement with an empty id or one naming a missing row: both fail
// with a configuration error.
func (r *FallbackResolver) Resolve(ctx context.Context, studioID, categoryID *string) (Placement, error) {
	placement := Placement{StudioID: trimmed(studioID), CategoryID: trimmed(categoryID)}

	problems, err := r.Verify(ctx, studioID, categoryID)
	if err != nil {
		return Placement{}, err
	}
	if len(problems) > 0 {
		return Placement{}, apperrors.NewConfigurationError("configured studio or category does not exist", http.StatusBadRequest, problems)
	}

	if placement.StudioID == "" {
		studios, err := r.studios.ListActive(ctx)
		if err != nil {
			return Placement{}, err
		}
		picked, ok := oldest(studios, func(s domain.Studio) (time.Time, string) { return s.CreatedAt, s.ID })
		if !ok {
			return Placement{}, apperrors.NewConfigurationError("no active studio available for ticket", http.StatusBadRequest, nil)
		}
		placement.StudioID = picked.ID
	}

	if placement.CategoryID == "" {
		categories, err := r.categories.ListActiveRoots(ctx)
		if err != nil {
			return Placement{}, err
		}
		picked, ok := oldest(categories, func(c domain.Category) (time.Time, string) { return c.CreatedAt, c.ID })
		if !ok {
			return Placement{}, apperrors.NewConfigurationError("no active category available for ticket", http.StatusBadRequest, nil)
		}
		placement.CategoryID = picked.ID
	}

	return placement, nil
}

// oldest picks the earliest-created item, breaking ties by id.
func oldest[T any](items []T, key func(T) (time.Time, string)) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	sorted := append([]T(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, idI := key(sorted[i])
		cj, idJ := key(sorted[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return idI < idJ
	})
	return sorted[0], true
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
