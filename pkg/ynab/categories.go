package ynab

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// categoryService implements the CategoryService interface
type categoryService struct {
	client *Client
}

// ListByBudget retrieves all categories of a budget, flattened across groups
func (s *categoryService) ListByBudget(ctx context.Context, budgetID string) ([]*Category, error) {
	var result struct {
		CategoryGroups []struct {
			Categories []*Category `json:"categories"`
		} `json:"category_groups"`
	}
	path := fmt.Sprintf("/budgets/%s/categories", budgetID)
	if err := s.client.get(ctx, path, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to list categories for budget %s", budgetID)
	}

	var categories []*Category
	for _, group := range result.CategoryGroups {
		for _, category := range group.Categories {
			if category.Deleted {
				continue
			}
			categories = append(categories, category)
		}
	}
	return categories, nil
}

// FindByName locates a category by its display name
func (s *categoryService) FindByName(ctx context.Context, budgetID, name string) (*Category, error) {
	categories, err := s.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	for _, category := range categories {
		if category.Name == name {
			return category, nil
		}
	}
	return nil, errors.Wrapf(ErrCategoryNotFound, "budget %s, category %q", budgetID, name)
}
