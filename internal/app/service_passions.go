package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pathos/api/internal/store"
	"pathos/api/internal/util"
)

type CreatePassionInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
}

// ListPassions returns the global taxonomy (curated passions only).
func (s *Service) ListPassions(ctx context.Context) ([]map[string]any, error) {
	passions, err := s.store.ListPassions(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(passions))
	for _, p := range passions {
		items = append(items, passionPayload(p))
	}
	return items, nil
}

// CreatePassion creates a custom passion and auto-joins the creator. The slug
// is derived from the name; collisions get a numeric suffix. A concurrent
// create of the same slug loses at the unique index and surfaces as 409.
func (s *Service) CreatePassion(ctx context.Context, userID string, in CreatePassionInput) (map[string]any, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	base := util.Slugify(name)
	if base == "" {
		return nil, validationError("name must contain at least one letter or digit")
	}

	if in.ParentID != nil {
		if _, err := s.store.GetPassion(ctx, *in.ParentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("parent passion")
			}
			return nil, err
		}
	}

	slug := base
	for i := 1; ; i++ {
		exists, err := s.store.PassionSlugExists(ctx, slug)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	passion, err := s.store.CreatePassion(ctx, store.Passion{
		ID:          util.NewID("pas"),
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		ParentID:    in.ParentID,
		Icon:        in.Icon,
		Color:       in.Color,
		IsCustom:    true,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("SLUG_CONFLICT", "A passion with this name was just created")
		}
		return nil, err
	}

	if err := s.store.JoinPassion(ctx, userID, passion.ID); err != nil {
		return nil, err
	}
	return passionPayload(passion), nil
}

// GetPassion resolves a passion by id, falling back to slug so public pages
// can link by either.
func (s *Service) GetPassion(ctx context.Context, idOrSlug string) (map[string]any, error) {
	passion, err := s.store.GetPassion(ctx, idOrSlug)
	if errors.Is(err, sql.ErrNoRows) {
		passion, err = s.store.GetPassionBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("passion")
		}
		return nil, err
	}
	return passionPayload(passion), nil
}

// JoinPassion adds the passion to the caller's list.
func (s *Service) JoinPassion(ctx context.Context, userID, passionID string) (map[string]any, error) {
	passion, err := s.store.GetPassion(ctx, passionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("passion")
		}
		return nil, err
	}

	joined, err := s.store.HasUserPassion(ctx, userID, passionID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, conflict("ALREADY_JOINED", "Passion already joined")
	}

	if err := s.store.JoinPassion(ctx, userID, passionID); err != nil {
		return nil, err
	}
	return passionPayload(passion), nil
}

// LeavePassion removes the passion from the caller's list. Projects under it
// are untouched.
func (s *Service) LeavePassion(ctx context.Context, userID, passionID string) error {
	removed, err := s.store.LeavePassion(ctx, userID, passionID)
	if err != nil {
		return err
	}
	if !removed {
		return notFound("passion membership")
	}
	return nil
}

// ListUserPassions returns the caller's joined passions in join order.
func (s *Service) ListUserPassions(ctx context.Context, userID string) ([]map[string]any, error) {
	passions, err := s.store.ListUserPassions(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(passions))
	for _, p := range passions {
		items = append(items, passionPayload(p))
	}
	return items, nil
}

func passionPayload(p store.Passion) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"slug":        p.Slug,
		"description": p.Description,
		"parentId":    p.ParentID,
		"icon":        p.Icon,
		"color":       p.Color,
		"isCustom":    p.IsCustom,
		"createdAt":   p.CreatedAt,
	}
}
