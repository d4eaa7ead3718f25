package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/website"
)

type ValidationService interface {
	Validate(ctx context.Context, sub *models.Submission, parts []*models.SubmissionPart) (models.ValidationResult, error)
}

type validationService struct {
	registry *website.Registry
	accounts repository.AccountRepository
}

func NewValidationService(registry *website.Registry, accounts repository.AccountRepository) ValidationService {
	return &validationService{registry: registry, accounts: accounts}
}

// Validate collects every problem that would stop the submission from
// posting and the warnings worth showing before it does.
func (s *validationService) Validate(ctx context.Context, sub *models.Submission, parts []*models.SubmissionPart) (models.ValidationResult, error) {
	res := models.ValidationResult{Problems: []string{}, Warnings: []string{}}

	def := models.DefaultPart(parts)
	if def == nil {
		res.Problems = append(res.Problems, "submission has no default part")
	}
	if sub.Type == models.SubmissionTypeFile && (sub.Files == nil || sub.Files.Primary == nil) {
		res.Problems = append(res.Problems, "file submission has no primary file")
	}

	destinations := 0
	for _, part := range parts {
		if part.IsDefault {
			continue
		}
		destinations++

		site, ok := s.registry.Get(part.Website)
		if !ok {
			res.Problems = append(res.Problems, fmt.Sprintf("unknown website %q", part.Website))
			continue
		}

		account, err := s.accounts.GetByID(ctx, part.AccountID)
		if err != nil {
			return res, fmt.Errorf("failed to load account %s: %w", part.AccountID, err)
		}
		if account == nil {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: account %s no longer exists", site.Info().Name, part.AccountID))
		}

		if part.PostStatus == models.PostStatusSuccess {
			continue
		}
		switch sub.Type {
		case models.SubmissionTypeFile:
			res.Merge(site.ValidateFileSubmission(sub, part, def))
		case models.SubmissionTypeNotification:
			res.Merge(site.ValidateNotificationSubmission(sub, part, def))
		}
	}

	if destinations == 0 {
		res.Warnings = append(res.Warnings, "submission has no destinations")
	}
	return res, nil
}
