package mappings

import "github.com/jonesrussell/north-cloud/recommender/internal/domain"

// ContentItemsMapping represents the Elasticsearch mapping for the content
// corpus index.
type ContentItemsMapping struct {
	Settings ContentItemsSettings `json:"settings"`
	Mappings ContentItemsMappings `json:"mappings"`
}

// ContentItemsSettings defines index-level settings.
type ContentItemsSettings struct {
	BaseSettings
}

// ContentItemsMappings defines the field mappings for content items.
type ContentItemsMappings struct {
	Properties ContentItemsProperties `json:"properties"`
}

// ContentItemsProperties defines the properties for each field in the
// content corpus mapping. Embedding fields are stored but never searched in
// Elasticsearch; similarity runs against the in-memory index.
type ContentItemsProperties struct {
	// Core identifiers
	ID         Field `json:"id"`
	URL        Field `json:"url"`
	SourceName Field `json:"source_name"`

	// Display fields
	Title      Field `json:"title"`
	Snippet    Field `json:"snippet"`
	Categories Field `json:"categories"`

	// Embeddings
	FullEmbedding     Field `json:"full_embedding"`
	ReducedEmbedding  Field `json:"reduced_embedding"`
	ReducedGeneration Field `json:"reduced_generation"`

	// Engagement counters
	Views    Field `json:"views"`
	Likes    Field `json:"likes"`
	Dislikes Field `json:"dislikes"`
	Saves    Field `json:"saves"`

	// Timestamps and moderation
	PublishedAt Field `json:"published_at"`
	Flagged     Field `json:"flagged"`
}

// NewContentItemsMapping creates the content corpus mapping with default
// settings.
func NewContentItemsMapping() *ContentItemsMapping {
	// Embeddings are large float arrays; store them without indexing.
	indexFalse := false

	return &ContentItemsMapping{
		Settings: ContentItemsSettings{
			BaseSettings: DefaultSettings(),
		},
		Mappings: ContentItemsMappings{
			Properties: ContentItemsProperties{
				ID: Field{
					Type: "keyword",
				},
				URL: Field{
					Type: "keyword",
				},
				SourceName: Field{
					Type: "keyword",
				},
				Title: Field{
					Type:     "text",
					Analyzer: "standard",
				},
				Snippet: Field{
					Type:     "text",
					Analyzer: "standard",
				},
				Categories: Field{
					Type: "keyword",
				},
				FullEmbedding: Field{
					Type:  "dense_vector",
					Dims:  domain.FullEmbeddingDim,
					Index: &indexFalse,
				},
				ReducedEmbedding: Field{
					Type:  "dense_vector",
					Dims:  domain.ReducedEmbeddingDim,
					Index: &indexFalse,
				},
				ReducedGeneration: Field{
					Type: "long",
				},
				Views: Field{
					Type: "long",
				},
				Likes: Field{
					Type: "long",
				},
				Dislikes: Field{
					Type: "long",
				},
				Saves: Field{
					Type: "long",
				},
				PublishedAt: Field{
					Type:   "date",
					Format: "strict_date_optional_time||epoch_millis",
				},
				Flagged: Field{
					Type: "boolean",
				},
			},
		},
	}
}

// GetJSON returns the content corpus mapping as a JSON string.
func (m *ContentItemsMapping) GetJSON() (string, error) {
	return ToJSON(m)
}

// Validate validates the content corpus mapping configuration.
func (m *ContentItemsMapping) Validate() error {
	return ValidateSettings(m.Settings.BaseSettings)
}
