package service

import (
	"errors"

	"collaborative-editor/internal/repository"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("invalid document id")
	ErrMessageEmpty     = errors.New("message text cannot be empty")
	ErrMessageTooLong   = errors.New("message text exceeds maximum length")
	ErrMessageInvalid   = errors.New("message text must be valid UTF-8")
	ErrInternalServer   = errors.New("internal server error")
)

// mapRepoError 将仓库层的错误映射到服务层定义的错误。
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrDocumentNotFound
	case errors.Is(err, repository.ErrInvalidDocumentID):
		return ErrInvalidDocument
	default:
		return ErrInternalServer
	}
}
