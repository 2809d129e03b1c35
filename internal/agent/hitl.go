package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// hitlTTL is how long a pending approval remains resolvable. Entries older
// than this are inaccessible even before the next sweep purges them.
const hitlTTL = 300 * time.Second

// PendingApproval is a tool call awaiting human approval.
type PendingApproval struct {
	ToolName    string
	Parameters  map[string]any
	Description string
	WorkspaceID string
	ChannelID   string // where the approval prompt was posted and where the result goes
	ThreadTS    string
	CreatedAt   time.Time
}

// hitlClaims is the payload signed into an action_id so it authenticates
// itself rather than just being an opaque lookup key.
type hitlClaims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"workspace_id"`
}

// HITLRegistry is the in-memory human-in-the-loop approval store. Accessors
// always sweep expired entries first, and resolve is exactly-once: a second
// resolution of the same action_id returns nothing.
type HITLRegistry struct {
	mu      sync.Mutex
	pending map[string]PendingApproval
	secret  []byte
}

// NewHITLRegistry builds an empty registry. secret signs and verifies
// action_id JWTs so an action_id can't be forged to target an unrelated
// workspace.
func NewHITLRegistry(secret []byte) *HITLRegistry {
	return &HITLRegistry{pending: map[string]PendingApproval{}, secret: secret}
}

func (r *HITLRegistry) sweepLocked(now time.Time) {
	for id, p := range r.pending {
		if now.Sub(p.CreatedAt) > hitlTTL {
			delete(r.pending, id)
		}
	}
}

// Create registers a new pending approval and returns a signed action_id.
func (r *HITLRegistry) Create(approval PendingApproval) (string, error) {
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}
	id := uuid.NewString()

	claims := hitlClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(approval.CreatedAt.Add(hitlTTL)),
			IssuedAt:  jwt.NewNumericDate(approval.CreatedAt),
		},
		WorkspaceID: approval.WorkspaceID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	actionID, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign action_id: %w", err)
	}

	r.mu.Lock()
	r.sweepLocked(approval.CreatedAt)
	r.pending[actionID] = approval
	r.mu.Unlock()
	return actionID, nil
}

// Resolve pops and returns the pending approval for actionID if it is still
// present and unexpired; a second call with the same actionID (or one made
// after the TTL elapsed) returns (nil, false).
func (r *HITLRegistry) Resolve(actionID string) (*PendingApproval, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())

	approval, ok := r.pending[actionID]
	if !ok {
		return nil, false
	}
	delete(r.pending, actionID)
	return &approval, true
}

// VerifyActionID checks actionID's signature and expiry without consuming
// it, returning the workspace it was scoped to.
func (r *HITLRegistry) VerifyActionID(actionID string) (workspaceID string, ok bool) {
	token, err := jwt.ParseWithClaims(actionID, &hitlClaims{}, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(*hitlClaims)
	if !ok {
		return "", false
	}
	return claims.WorkspaceID, true
}
