package sdk

import (
	"sync"
	"time"

	"github.com/sofizpay/sdk-go"
	"github.com/sofizpay/sdk-go/errors"
)

// session is one active stream registration.
type session struct {
	PublicKey     string
	StartTime     time.Time
	IsActive      bool
	WithHistory   bool
	CheckInterval time.Duration

	handle sofizpay.StreamHandle
}

// sessionRegistry holds the per-account stream sessions a Client owns. At
// most one session exists per account identifier. All mutation happens under
// the registry mutex, so the presence check and the insert cannot interleave
// across goroutines.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
	}
}

// start registers a session for publicKey, invoking open only when no session
// exists for that key. A second start for the same key is rejected, not
// queued or merged.
func (r *sessionRegistry) start(publicKey string, info *session, open func() (sofizpay.StreamHandle, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[publicKey]; exists {
		return errors.NewSDKError(
			errors.STREAM_ALREADY_ACTIVE,
			"transaction stream already active for this account",
			nil,
		)
	}

	handle, err := open()
	if err != nil {
		return err
	}

	info.handle = handle
	info.IsActive = true
	r.sessions[publicKey] = info
	return nil
}

// stop removes the session for publicKey and closes its handle. Stopping an
// unknown key, including a key stopped moments earlier, is reported as
// STREAM_NOT_FOUND and is always safe.
func (r *sessionRegistry) stop(publicKey string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[publicKey]
	if !ok {
		return nil, errors.NewSDKError(
			errors.STREAM_NOT_FOUND,
			"no active transaction stream found for this account",
			nil,
		)
	}

	delete(r.sessions, publicKey)
	sess.handle.Close()
	sess.IsActive = false
	return sess, nil
}

// get returns the session for publicKey, if any.
func (r *sessionRegistry) get(publicKey string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[publicKey]
	return sess, ok
}
