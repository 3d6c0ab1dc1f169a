package remote

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// Error 将上游客户端错误转换为应用错误；notFound 为空时 404 使用通用错误
func Error(err error, notFound *errors.AppError) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}

	if stderrors.Is(err, apiclient.ErrSessionExpired) {
		return errors.ErrSessionExpired.WithError(err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrUpstreamTimeout.WithError(err)
	}
	if stderrors.Is(err, apiclient.ErrBadEnvelope) {
		return errors.ErrUpstreamBadResponse.WithError(err)
	}

	var apiErr *apiclient.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			if notFound == nil {
				notFound = errors.ErrNotFound
			}
			return notFound.WithError(err)
		case http.StatusUnauthorized:
			return errors.ErrSessionExpired.WithError(err)
		case http.StatusForbidden:
			return errors.ErrPermissionDenied.WithError(err)
		case http.StatusTooManyRequests:
			return errors.ErrRateLimitExceed.WithError(err)
		}
		if apiErr.Status >= http.StatusInternalServerError {
			return errors.ErrUpstreamUnavailable.WithError(err)
		}
		e := errors.ErrUpstreamRejected.WithError(err)
		if apiErr.Message != "" {
			e = e.WithMessage(apiErr.Message)
		}
		return e
	}

	return errors.ErrUpstreamUnavailable.WithError(err)
}
