package service

import (
	"context"

	"rekam/internal/identity"
	"rekam/internal/submission/models"
	id "rekam/pkg/domain"
)

// List returns one page of category, newest first. Role user sees only their
// own submissions. Pages past the end return no rows with the real total.
func (s *Service) List(ctx context.Context, category string, actor identity.Actor, params models.ListParams) (_ *models.Page, err error) {
	ctx, done := s.observe(ctx, category, models.OpList)
	defer done(&err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return nil, err
	}

	page, size := normalizePage(params.Page, params.PageSize)
	filter := models.Filter{OwnerID: readScope(actor)}
	if q := sanitizeSearch(params.Search); q != "" {
		filter.Search = q
		filter.SearchFields = cat.SearchFields()
	}

	rows, total, err := s.store.Query(ctx, cat.Name, models.Query{
		Filter: filter,
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, errPersistence(err, "failed to list submissions")
	}
	if rows == nil {
		rows = []*models.Submission{}
	}
	s.metrics.ObserveListRows(len(rows))

	return &models.Page{
		Rows:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages(total, size),
	}, nil
}

// Search restarts the listing at page 1 with query.
func (s *Service) Search(ctx context.Context, category string, actor identity.Actor, query string) (*models.Page, error) {
	return s.List(ctx, category, actor, models.ListParams{Page: 1, PageSize: DefaultPageSize, Search: query})
}

// Refresh restarts the listing at page 1 with no search.
func (s *Service) Refresh(ctx context.Context, category string, actor identity.Actor) (*models.Page, error) {
	return s.List(ctx, category, actor, models.ListParams{Page: 1, PageSize: DefaultPageSize})
}

// Get returns one submission under the same visibility rules as List.
func (s *Service) Get(ctx context.Context, category string, submissionID id.SubmissionID, actor identity.Actor) (_ *models.Submission, err error) {
	ctx, done := s.observe(ctx, category, models.OpGet)
	defer done(&err)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := requireSubmissionID(submissionID); err != nil {
		return nil, err
	}
	cat, err := s.categories.Lookup(category)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, cat.Name, models.Filter{ID: submissionID, OwnerID: readScope(actor)})
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func totalPages(total, size int) int {
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
