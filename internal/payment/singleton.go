package payment

import "sync"

// The process-wide gateway is built lazily from the credentials given
// to Configure.  Components receive the Default accessor as a function
// value, so tests can swap a fake in with SetGateway and restore with
// Reset without touching configuration.
var (
	mu            sync.Mutex
	gateway       Gateway
	secretKey     string
	webhookSecret string
)

// Configure records the provider credentials.  An empty secret key
// leaves the gateway unconfigured; paid operations then fail with
// ErrNotConfigured while free registrations keep working.
func Configure(key, whSecret string) {
	mu.Lock()
	defer mu.Unlock()
	secretKey = key
	webhookSecret = whSecret
	gateway = nil
}

// Default returns the process-wide gateway, building it on first use.
func Default() (Gateway, error) {
	mu.Lock()
	defer mu.Unlock()
	if gateway != nil {
		return gateway, nil
	}
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	gateway = NewStripeGateway(secretKey, webhookSecret)
	return gateway, nil
}

// SetGateway installs an explicit gateway instance.  Test hook.
func SetGateway(g Gateway) {
	mu.Lock()
	defer mu.Unlock()
	gateway = g
}

// Reset clears the gateway and credentials.  Test hook.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	gateway = nil
	secretKey = ""
	webhookSecret = ""
}
