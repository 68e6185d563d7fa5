// Package storage implements the Elasticsearch-backed content corpus store.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
	"github.com/jonesrussell/north-cloud/recommender/internal/elasticsearch/mappings"
)

// DefaultContentIndex is the index holding the aggregated content corpus.
const DefaultContentIndex = "content_items"

// scanPageSize is the search_after page size for full corpus scans.
const scanPageSize = 500

// ContentStorage implements corpus reads and reduced-vector write-back over
// Elasticsearch.
type ContentStorage struct {
	client *es.Client
	index  string
}

// NewContentStorage creates a content storage instance over the given index
// (DefaultContentIndex when empty).
func NewContentStorage(client *es.Client, index string) *ContentStorage {
	if index == "" {
		index = DefaultContentIndex
	}
	return &ContentStorage{client: client, index: index}
}

// ScanEmbedded returns every recommendable item carrying a full embedding,
// paging with search_after so corpus size never exceeds one result window.
// Flagged content is filtered here so it can never enter the index.
func (s *ContentStorage) ScanEmbedded(ctx context.Context) ([]*domain.ContentItem, error) {
	var (
		items       []*domain.ContentItem
		searchAfter []interface{}
	)

	for {
		query := map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"must": []map[string]interface{}{
						{"exists": map[string]interface{}{"field": "full_embedding"}},
					},
					"must_not": []map[string]interface{}{
						{"term": map[string]interface{}{"flagged": true}},
					},
				},
			},
			"size": scanPageSize,
			"sort": []map[string]interface{}{
				{"_id": map[string]interface{}{"order": "asc"}},
			},
		}
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}

		hits, lastSort, err := s.searchPage(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			return items, nil
		}

		items = append(items, hits...)
		searchAfter = lastSort
	}
}

// searchPage runs one search request and returns the page's items plus the
// sort values of the last hit for search_after continuation.
func (s *ContentStorage) searchPage(ctx context.Context, query map[string]interface{}) ([]*domain.ContentItem, []interface{}, error) {
	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(queryBytes)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, nil, fmt.Errorf("error searching: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				ID     string             `json:"_id"`
				Source domain.ContentItem `json:"_source"`
				Sort   []interface{}      `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, nil, fmt.Errorf("error decoding response: %w", err)
	}

	items := make([]*domain.ContentItem, 0, len(searchResult.Hits.Hits))
	var lastSort []interface{}
	for _, hit := range searchResult.Hits.Hits {
		item := hit.Source
		if item.ID == "" {
			item.ID = hit.ID
		}
		items = append(items, &item)
		lastSort = hit.Sort
	}
	return items, lastSort, nil
}

// FetchByIDs retrieves content items by document id. Missing ids are
// silently omitted so callers can work from interaction history without
// checking corpus membership first.
func (s *ContentStorage) FetchByIDs(ctx context.Context, ids []string) ([]*domain.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body := map[string]interface{}{"ids": ids}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mget body: %w", err)
	}

	res, err := s.client.Mget(
		bytes.NewReader(bodyBytes),
		s.client.Mget.WithContext(ctx),
		s.client.Mget.WithIndex(s.index),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mget: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error fetching documents: %s", res.String())
	}

	var mgetResult struct {
		Docs []struct {
			ID     string             `json:"_id"`
			Found  bool               `json:"found"`
			Source domain.ContentItem `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mgetResult); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	items := make([]*domain.ContentItem, 0, len(mgetResult.Docs))
	for _, doc := range mgetResult.Docs {
		if !doc.Found {
			continue
		}
		item := doc.Source
		if item.ID == "" {
			item.ID = doc.ID
		}
		items = append(items, &item)
	}
	return items, nil
}

// BulkUpsertReducedEmbeddings writes reduced vectors back to content
// documents in one bulk request, tagged with the reducer generation that
// produced them.
func (s *ContentStorage) BulkUpsertReducedEmbeddings(ctx context.Context, vectors map[string][]float32, generation int64) error {
	if len(vectors) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for id, vec := range vectors {
		meta := map[string]interface{}{
			"update": map[string]interface{}{
				"_index": s.index,
				"_id":    id,
			},
		}
		doc := map[string]interface{}{
			"doc": map[string]interface{}{
				"reduced_embedding":  vec,
				"reduced_generation": generation,
			},
		}

		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode update: %w", err)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk update error: %s", res.String())
	}

	return nil
}

// UpdateEngagement increments a document's engagement counter for the given
// interaction kind. Counter drift between updates and index rebuilds is
// tolerated; the rebuild reads the live values.
func (s *ContentStorage) UpdateEngagement(ctx context.Context, contentID string, kind domain.EventKind) error {
	field := ""
	switch kind {
	case domain.EventView, domain.EventRead:
		field = "views"
	case domain.EventLike:
		field = "likes"
	case domain.EventDislike:
		field = "dislikes"
	case domain.EventSave:
		field = "saves"
	default:
		return nil
	}

	update := map[string]interface{}{
		"script": map[string]interface{}{
			"source": fmt.Sprintf("ctx._source.%s = (ctx._source.%s == null ? 0 : ctx._source.%s) + 1", field, field, field),
			"lang":   "painless",
		},
	}
	updateBytes, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	res, err := s.client.Update(
		s.index,
		contentID,
		bytes.NewReader(updateBytes),
		s.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to update engagement: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error updating engagement: %s", res.String())
	}

	return nil
}

// EnsureIndex creates the content index with its mapping if it does not
// exist. Existing indices are left untouched.
func (s *ContentStorage) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{s.index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := mappings.NewContentItemsMapping()
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("invalid index mapping: %w", err)
	}
	body, err := mapping.GetJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize mapping: %w", err)
	}

	createRes, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader([]byte(body))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("error creating index: %s", createRes.String())
	}
	return nil
}

// TestConnection tests the connection to Elasticsearch.
func (s *ContentStorage) TestConnection(ctx context.Context) error {
	res, err := s.client.Info()
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error response from Elasticsearch: %s", res.String())
	}

	return nil
}
