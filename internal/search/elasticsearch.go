package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/config"
	"example.com/ujenzipro/internal/models"
)

// ElasticClient provides integration with Elasticsearch. Deliveries
// are indexed asynchronously off the change feed, so the index lags the
// store by at most the feed latency.
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// IndexDelivery indexes a delivery document, replacing any previous
// version of it
func (c *ElasticClient) IndexDelivery(ctx context.Context, delivery *models.Delivery) error {
	if c == nil || !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":               delivery.ID.String(),
		"tracking_number":  delivery.TrackingNumber,
		"status":           delivery.Status,
		"supplier_id":      delivery.SupplierID.String(),
		"material_type":    delivery.MaterialType,
		"quantity":         delivery.Quantity,
		"weight_kg":        delivery.WeightKg,
		"pickup_address":   delivery.PickupAddress,
		"delivery_address": delivery.DeliveryAddress,
		"created_at":       delivery.CreatedAt,
		"updated_at":       delivery.UpdatedAt,
	}
	if delivery.BuilderID != nil {
		doc["builder_id"] = delivery.BuilderID.String()
	}
	if delivery.ProjectID != nil {
		doc["project_id"] = delivery.ProjectID.String()
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal delivery document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: delivery.ID.String(),
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("delivery_id", delivery.ID.String()).Msg("Delivery indexed")
	return nil
}

// DeleteDelivery removes a delivery from the index
func (c *ElasticClient) DeleteDelivery(ctx context.Context, id string) error {
	if c == nil || !c.enabled {
		return nil
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.DeleteRequest{
		Index:      indexName,
		DocumentID: id,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	// A missing document is fine; the index never saw the delivery
	if res.IsError() && res.StatusCode != 404 {
		return errors.Errorf("Elasticsearch delete error: %s", res.String())
	}

	return nil
}

// SearchDeliveries runs a free-text query over the delivery index and
// returns matching delivery ids, best match first
func (c *ElasticClient) SearchDeliveries(ctx context.Context, term string, size int) ([]string, error) {
	if c == nil || !c.enabled {
		return nil, nil
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"tracking_number^3", "material_type^2", "pickup_address", "delivery_address"},
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode search response")
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.ID)
	}

	return ids, nil
}
