package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/flowery-users/internal/application"
)

const usersMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "name":           {"type": "text"},
      "email":          {"type": "keyword", "normalizer": "lowercase"},
      "role":           {"type": "keyword"},
      "lastConnection": {"type": "date"}
    }
  },
  "settings": {
    "analysis": {
      "normalizer": {
        "lowercase": {"type": "custom", "filter": ["lowercase"]}
      }
    }
  }
}`

// UserIndex mirrors brief user projections into an Elasticsearch index.
type UserIndex struct {
	ES      *elasticsearch.Client
	Index   string
	Timeout time.Duration
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index, Timeout: 3 * time.Second}
}

// EnsureIndex creates the index with its mapping when missing.
func (x *UserIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: x.Index, Body: strings.NewReader(usersMapping)}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es create index %s: %s", x.Index, res.Status())
	}
	return nil
}

func (x *UserIndex) IndexUser(ctx context.Context, u application.UserBriefDTO) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	res, err := esapi.IndexRequest{Index: x.Index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", u.ID, res.Status())
	}
	return nil
}

func (x *UserIndex) RemoveUser(ctx context.Context, id string) error {
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	res, err := esapi.DeleteRequest{Index: x.Index, DocumentID: id}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete %s: %s", id, res.Status())
	}
	return nil
}

var _ application.UserIndexer = (*UserIndex)(nil)
