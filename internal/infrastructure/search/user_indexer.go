package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// UserIndexer writes user documents to Elasticsearch and runs admin searches.
type UserIndexer struct {
	ES        *elasticsearch.Client
	IndexName string
}

func NewUserIndexer(es *elasticsearch.Client, index string) *UserIndexer {
	return &UserIndexer{ES: es, IndexName: index}
}

// userDocument never includes the password hash.
type userDocument struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	Company     string `json:"company,omitempty"`
	JobPosition string `json:"job_position,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toDocument(u *entity.User) userDocument {
	return userDocument{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role.String(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		City:        u.City,
		Country:     u.Country,
		Company:     u.Company,
		JobPosition: u.JobPosition,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (x *UserIndexer) Index(ctx context.Context, u *entity.User) error {
	b, err := json.Marshal(toDocument(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.IndexName, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// searchQuery builds a multi_match over identity and profile fields.
func searchQuery(q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^3", "username^3", "first_name^2", "last_name^2", "company", "city"},
			},
		},
		"size": size,
	}
}

// Search performs a simple multi_match search. size is clamped to 1..50.
func (x *UserIndexer) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	b, err := json.Marshal(searchQuery(q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.IndexName),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// UsersMapping is the index mapping applied on startup.
const UsersMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "email":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "username":     {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "role":         {"type": "keyword"},
      "first_name":   {"type": "text"},
      "last_name":    {"type": "text"},
      "city":         {"type": "text"},
      "country":      {"type": "keyword"},
      "company":      {"type": "text"},
      "job_position": {"type": "text"},
      "created_at":   {"type": "date"}
    }
  }
}`
