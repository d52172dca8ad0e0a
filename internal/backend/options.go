package backend

// RequestOption adjusts a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	idempotencyKey    string
	apiVersion        string
	connectedAccount  string
	maxNetworkRetries *int
}

// WithIdempotencyKey sets the Idempotency-Key header. POST requests without
// one get a generated key that stays the same across retries.
func WithIdempotencyKey(key string) RequestOption {
	return func(o *requestOptions) { o.idempotencyKey = key }
}

// WithAPIVersion overrides the Stripe-Version header for one call.
func WithAPIVersion(version string) RequestOption {
	return func(o *requestOptions) { o.apiVersion = version }
}

// WithConnectedAccount makes the call on behalf of a connected account.
func WithConnectedAccount(accountID string) RequestOption {
	return func(o *requestOptions) { o.connectedAccount = accountID }
}

func WithMaxNetworkRetries(n int) RequestOption {
	return func(o *requestOptions) { o.maxNetworkRetries = &n }
}

func collectOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
