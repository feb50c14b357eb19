package service

import (
	"fmt"
	"log"

	"anoa.com/certhub/internal/model"
	"github.com/meilisearch/meilisearch-go"
)

const certificateIndex = "certificates"

// SearchService maintains the certificate search index for the staff
// console. All methods are nil-safe: with no Meilisearch configured the
// service degrades to a no-op.
type SearchService interface {
	IndexCertificate(cert *model.Certificate, studentName string) error
	DeleteCertificate(id string) error
	Search(query string, limit int64) ([]CertificateDocument, error)
}

type CertificateDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Platform    string `json:"platform"`
	StudentName string `json:"student_name"`
	Status      string `json:"status"`
	IssuedDate  string `json:"issued_date"`
}

type searchService struct {
	client meilisearch.ServiceManager
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{client: client}
	if client != nil {
		s.initIndexes()
	}
	return s
}

func (s *searchService) initIndexes() {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        certificateIndex,
		PrimaryKey: "id",
	})
	if err != nil {
		log.Printf("Failed to create meilisearch index (may already exist): %v", err)
	}

	_, err = s.client.Index(certificateIndex).UpdateSearchableAttributes(&[]string{
		"title", "platform", "student_name",
	})
	if err != nil {
		log.Printf("Failed to update searchable attributes: %v", err)
	}

	// UpdateFilterableAttributes wants *[]interface{}, unlike the other
	// attribute setters.
	filterableAttrs := []string{"status", "platform"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	_, err = s.client.Index(certificateIndex).UpdateFilterableAttributes(&filterableInterface)
	if err != nil {
		log.Printf("Failed to update filterable attributes: %v", err)
	}
}

func (s *searchService) IndexCertificate(cert *model.Certificate, studentName string) error {
	if s.client == nil {
		return nil
	}

	doc := CertificateDocument{
		ID:          cert.ID.String(),
		Title:       cert.Title,
		Platform:    cert.Platform,
		StudentName: studentName,
		Status:      string(cert.Status),
		IssuedDate:  cert.IssuedDate.Format("2006-01-02"),
	}

	_, err := s.client.Index(certificateIndex).AddDocuments([]CertificateDocument{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("failed to index certificate %s: %w", cert.ID, err)
	}
	return nil
}

func (s *searchService) DeleteCertificate(id string) error {
	if s.client == nil {
		return nil
	}

	_, err := s.client.Index(certificateIndex).DeleteDocument(id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate %s from index: %w", id, err)
	}
	return nil
}

func (s *searchService) Search(query string, limit int64) ([]CertificateDocument, error) {
	if s.client == nil {
		return nil, nil
	}

	if limit <= 0 {
		limit = 20
	}

	resp, err := s.client.Index(certificateIndex).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("certificate search failed: %w", err)
	}

	docs := make([]CertificateDocument, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		var doc CertificateDocument
		if err := hit.DecodeInto(&doc); err != nil {
			log.Printf("Failed to decode search hit: %v", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func strPtr(s string) *string {
	return &s
}
