package domain

import "fmt"

// ValidateUpdate checks an Update before it enters dedup/scoring.
func ValidateUpdate(u Update) error {
	if u.ID == "" {
		return fmt.Errorf("validate: %w: id is empty", ErrParse)
	}
	if !ValidSources[u.Source] {
		return fmt.Errorf("validate: %w: unknown source %q", ErrParse, u.Source)
	}
	if u.Title == "" {
		return fmt.Errorf("validate: %w: title is empty", ErrParse)
	}
	if u.PublishedAt.IsZero() {
		return fmt.Errorf("validate: %w: published_at is zero", ErrParse)
	}
	return nil
}

// ValidateAnswerRequest checks an AnswerRequest at the answer engine boundary.
func ValidateAnswerRequest(req AnswerRequest) error {
	if req.Question == "" {
		return fmt.Errorf("validate: %w: question is empty", ErrParse)
	}
	if req.Mode == "" {
		return fmt.Errorf("validate: %w: mode is empty", ErrParse)
	}
	if !ValidModes[req.Mode] {
		return fmt.Errorf("validate: %w: unknown mode %q", ErrParse, req.Mode)
	}
	return nil
}
