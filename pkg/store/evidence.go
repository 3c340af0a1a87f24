package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/veriq-io/veriq/pkg/models"
)

// SaveEvidence appends the verified claims of one attempt in verifier
// emission order. Claim text and source URLs are stored verbatim, the URL
// list as a JSON array. The batch is transactional: either every row lands
// or none does.
func (s *Store) SaveEvidence(ctx context.Context, sessionID string, claims []models.VerifiedClaim) error {
	if len(claims) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: save evidence: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := formatTime(now())
	for i, claim := range claims {
		sources := claim.Sources
		if sources == nil {
			sources = []string{}
		}
		urls, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("store: save evidence: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evidence (id, session_id, claim_text, verification_status, source_urls, position, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), sessionID, claim.Claim, string(claim.Status), string(urls), i, createdAt); err != nil {
			return fmt.Errorf("store: save evidence: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: save evidence: %w", err)
	}
	return nil
}

// ListEvidence returns a session's evidence rows in stored order.
func (s *Store) ListEvidence(ctx context.Context, sessionID string) ([]models.Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, claim_text, verification_status, source_urls, position, created_at
		   FROM evidence
		  WHERE session_id = $1
		  ORDER BY position, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list evidence: %w", err)
	}
	defer rows.Close()

	var items []models.Evidence
	for rows.Next() {
		var (
			item      models.Evidence
			status    string
			urls      string
			createdAt string
		)
		if err := rows.Scan(&item.ID, &item.SessionID, &item.ClaimText, &status, &urls, &item.Position, &createdAt); err != nil {
			return nil, fmt.Errorf("store: list evidence: %w", err)
		}
		item.VerificationStatus = models.VerificationStatus(status)
		if err := json.Unmarshal([]byte(urls), &item.SourceURLs); err != nil {
			return nil, fmt.Errorf("store: list evidence: decode source urls: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: list evidence: %w", err)
		}
		item.CreatedAt = t
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list evidence: %w", err)
	}
	return items, nil
}
