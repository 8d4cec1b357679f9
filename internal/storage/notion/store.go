// Package notion maps finance tracker databases in Notion to domain records.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const queryPageSize = 100

type databaseAPI interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	Get(ctx context.Context, id notionapi.DatabaseID) (*notionapi.Database, error)
}

type pageAPI interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// Databases names the Notion databases backing each record kind.
type Databases struct {
	Wallet          string
	Trade           string
	Account         string
	Currency        string
	CurrencyHistory string
	Trend           string
}

// Store reads and writes finance records. All calls share one rate limiter.
type Store struct {
	databases databaseAPI
	pages     pageAPI
	dbs       Databases
	limiter   *rate.Limiter
}

// NewStore creates a Store on top of an authenticated Notion client.
// requestsPerSecond caps the API call rate across all goroutines using the store.
func NewStore(client *notionapi.Client, dbs Databases, requestsPerSecond float64) *Store {
	return newStore(client.Database, client.Page, dbs, rate.NewLimiter(rate.Limit(requestsPerSecond), 1))
}

func newStore(databases databaseAPI, pages pageAPI, dbs Databases, limiter *rate.Limiter) *Store {
	return &Store{databases: databases, pages: pages, dbs: dbs, limiter: limiter}
}

// queryAll fetches every page of a database, following pagination cursors.
func (s *Store) queryAll(ctx context.Context, databaseID string) ([]notionapi.Page, error) {
	if databaseID == "" {
		return nil, errors.New("database id is empty")
	}

	var (
		pages  []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := s.databases.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "query database %s", databaseID)
		}

		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

func (s *Store) createPage(ctx context.Context, databaseID string, props notionapi.Properties) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := s.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: props,
	})
	return err
}

func (s *Store) updatePage(ctx context.Context, pageID string, props notionapi.Properties) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := s.pages.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	return err
}
