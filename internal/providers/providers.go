// internal/providers/providers.go
package providers

import (
	"context"
	stderrors "errors"
	"net"

	"campaign-engine/internal/common/errors"
)

// DispatchResult is what a provider hands back for a successfully accepted
// call, SMS or email. MessageID is the provider-side identifier used for
// later status correlation.
type DispatchResult struct {
	MessageID string
	Status    string
}

func wrapTransportErr(provider string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewProviderTimeoutError(provider)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewProviderTimeoutError(provider)
	}
	return errors.NewProviderError(provider, 0, err)
}
