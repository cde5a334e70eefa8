package services

import "errors"

// Taxonomy: not-found errors map to 404, guard failures to 400, credential
// failures to 401. Anything else bubbling out of a store call is a 500.
var (
	ErrInvalidInput = errors.New("invalid input")

	ErrUserNotFound       = errors.New("user not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	ErrEmailInUse         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")

	ErrInvalidReviewer       = errors.New("invalid reviewer or insufficient permissions")
	ErrInvalidDecision       = errors.New("invalid review decision")
	ErrInvalidBatchDecision  = errors.New("invalid batch decision, only approve or reject allowed")
	ErrNotAssignable         = errors.New("submission is not available for assignment")
	ErrNotUnderReview        = errors.New("submission is not under review")
	ErrNotAuthorizedReviewer = errors.New("you are not authorized to review this submission")
	ErrNotAssignedReviewer   = errors.New("you are not assigned to review this submission")
)
