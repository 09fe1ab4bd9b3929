package rest

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/store"
)

const MAX_PAGE_SIZE = 100

// ListTransactionsQueryParams holds query parameters for GET /transactions
type ListTransactionsQueryParams struct {
	// Filters
	Owner         string `form:"owner"`
	PreviousOwner string `form:"previous_owner"`
	StartTime     string `form:"start_time"` // RFC 3339
	EndTime       string `form:"end_time"`   // RFC 3339

	// Pagination
	Limit int `form:"limit,default=20"`
}

// ParseListTransactionsQuery parses query parameters for GET /transactions
func ParseListTransactionsQuery(c *gin.Context) (*ListTransactionsQueryParams, error) {
	var params ListTransactionsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limits
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}
	if params.Limit < 0 {
		params.Limit = 0
	}

	return &params, nil
}

// Filter converts the query parameters to a store filter
func (p *ListTransactionsQueryParams) Filter() (store.Filter, error) {
	filter := store.Filter{Limit: p.Limit}

	if p.Owner != "" {
		owner := domain.WalletAddress(p.Owner)
		if !owner.Valid() {
			return filter, errors.New("owner is not a valid wallet address")
		}
		filter.Owner = &owner
	}

	if p.PreviousOwner != "" {
		previous := domain.WalletAddress(p.PreviousOwner)
		if !previous.Valid() {
			return filter, errors.New("previous_owner is not a valid wallet address")
		}
		filter.PreviousOwner = &previous
	}

	if p.StartTime != "" {
		start, err := time.Parse(time.RFC3339, p.StartTime)
		if err != nil {
			return filter, errors.New("start_time must be RFC 3339")
		}
		filter.StartTime = &start
	}

	if p.EndTime != "" {
		end, err := time.Parse(time.RFC3339, p.EndTime)
		if err != nil {
			return filter, errors.New("end_time must be RFC 3339")
		}
		filter.EndTime = &end
	}

	return filter, nil
}
