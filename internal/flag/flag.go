// Package flag implements the flag lifecycle: keyed generation, idempotent
// placement, and stolen-state transitions.
package flag

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"flagrange/internal/store"

	"github.com/google/uuid"
)

const (
	// signatureHexLen is the length of the truncated HMAC-SHA256 prefix.
	signatureHexLen = 16
	// nonceBytes of fresh randomness per flag, 16 hex characters.
	nonceBytes = 8
)

// Pattern is the fixed, case-sensitive flag grammar.
var Pattern = regexp.MustCompile(`^FLAG\{[0-9a-f]{16}_[0-9a-f]{16}\}$`)

// Manager generates, places, and mutates flags. Generation is pure over its
// inputs plus the signing key; placement relies on the store's unique index
// for race safety.
type Manager struct {
	flags store.FlagStore
	key   []byte

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a flag manager with the given signing key.
func NewManager(flags store.FlagStore, signingKey string) *Manager {
	return &Manager{
		flags: flags,
		key:   []byte(signingKey),
		now:   time.Now,
	}
}

// Generate builds a fresh flag value: FLAG{signature_nonce} where nonce is
// random hex and signature is a truncated HMAC-SHA256 over
// game:team:tick:type:nonce. Unpredictable without the key, reproducible
// only by the key holder.
func (m *Manager) Generate(gameID uuid.UUID, teamID string, tickNumber int, typ store.FlagType) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to read randomness: %w", err)
	}
	nonceHex := hex.EncodeToString(nonce)
	return fmt.Sprintf("FLAG{%s_%s}", m.sign(gameID, teamID, tickNumber, typ, nonceHex), nonceHex), nil
}

// Verify reports whether value is a well-formed flag whose signature matches
// the given placement coordinates.
func (m *Manager) Verify(value string, gameID uuid.UUID, teamID string, tickNumber int, typ store.FlagType) bool {
	if !Pattern.MatchString(value) {
		return false
	}
	inner := value[len("FLAG{") : len(value)-1]
	signature := inner[:signatureHexLen]
	nonceHex := inner[signatureHexLen+1:]
	expected := m.sign(gameID, teamID, tickNumber, typ, nonceHex)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (m *Manager) sign(gameID uuid.UUID, teamID string, tickNumber int, typ store.FlagType, nonceHex string) string {
	mac := hmac.New(sha256.New, m.key)
	fmt.Fprintf(mac, "%s:%s:%d:%s:%s", gameID, teamID, tickNumber, typ, nonceHex)
	return hex.EncodeToString(mac.Sum(nil))[:signatureHexLen]
}

// Create places a flag for (game, team, tick, type). It is idempotent under
// retry: an existing row wins and is returned unchanged. The unique index is
// the actual race-safety mechanism; the existence check just avoids wasted
// generation in the common case.
func (m *Manager) Create(ctx context.Context, game *store.Game, teamID string, tick *store.Tick, typ store.FlagType) (*store.Flag, error) {
	existing, err := m.flags.GetFlagForTick(ctx, game.ID, teamID, tick.ID, typ)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	value, err := m.Generate(game.ID, teamID, tick.TickNumber, typ)
	if err != nil {
		return nil, err
	}

	validity := time.Duration(game.TickDurationSeconds*game.FlagValidityTicks) * time.Second
	f := &store.Flag{
		ID:         uuid.New(),
		GameID:     game.ID,
		TeamID:     teamID,
		TickID:     tick.ID,
		Type:       typ,
		Value:      value,
		ValidUntil: m.now().UTC().Add(validity),
		CreatedAt:  m.now().UTC(),
	}

	if err := m.flags.InsertFlag(ctx, f); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent writer won the insert; the persisted row is
			// authoritative.
			return m.flags.GetFlagForTick(ctx, game.ID, teamID, tick.ID, typ)
		}
		return nil, err
	}
	return f, nil
}

// ForTick returns a team's already-placed flags for a tick, for replaying
// injection after an interrupted tick execution.
func (m *Manager) ForTick(ctx context.Context, gameID uuid.UUID, teamID string, tickID uuid.UUID) ([]*store.Flag, error) {
	return m.flags.ListTeamFlagsForTick(ctx, gameID, teamID, tickID)
}

// MarkStolen records a capture. The increment is unconditional: a flag
// stolen by several attacker teams counts once per capture.
func (m *Manager) MarkStolen(ctx context.Context, f *store.Flag) error {
	return m.flags.MarkFlagStolen(ctx, f.ID)
}
