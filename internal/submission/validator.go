// Package submission judges attacker-submitted flags and serves the
// line-based submission protocol.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flagrange/internal/flag"
	"flagrange/internal/observability"
	"flagrange/internal/scoring"
	"flagrange/internal/store"

	"github.com/google/uuid"
)

// Result is the outcome of one submission attempt. Outcomes are values,
// not errors: EXPIRED, DUPLICATE, OWN_FLAG, and INVALID are auditable
// first-class states.
type Result struct {
	Status  store.SubmissionStatus
	Points  int
	Message string
}

// Validator sequences the flag lifecycle and the scoring engine to judge
// one submitted flag. Rules run in a fixed order and short-circuit on the
// first decisive one.
type Validator struct {
	teams   store.TeamStore
	flags   store.FlagStore
	subs    store.SubmissionStore
	manager *flag.Manager
	scoring *scoring.Engine
	metrics *observability.GameMetrics
	logger  *slog.Logger

	now func() time.Time
}

// NewValidator creates a submission validator.
func NewValidator(teams store.TeamStore, flags store.FlagStore, subs store.SubmissionStore,
	manager *flag.Manager, engine *scoring.Engine, metrics *observability.GameMetrics, logger *slog.Logger) *Validator {
	return &Validator{
		teams:   teams,
		flags:   flags,
		subs:    subs,
		manager: manager,
		scoring: engine,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// decision is the tagged outcome of one pipeline rule. A nil decision means
// "continue to the next rule".
type decision struct {
	status  store.SubmissionStatus
	message string
	accept  bool
}

// Submit judges one flag value submitted under a team token. Every branch
// except an unknown token writes one immutable FlagSubmission record; the
// submission log is the audit trail.
func (v *Validator) Submit(ctx context.Context, token, value, sourceIP string) (Result, error) {
	team, err := v.teams.GetTeamByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		// No team, no game to attribute a record to.
		res := Result{Status: store.SubmissionInvalid, Message: "team not in game"}
		v.metrics.CountSubmission(ctx, string(res.Status))
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	captured, dec, err := v.judge(ctx, team, value)
	if err != nil {
		return Result{}, err
	}

	points := 0
	if dec.accept {
		points = v.scoring.PointsFor(captured.Type)
	}

	sub := &store.FlagSubmission{
		ID:             uuid.New(),
		GameID:         team.GameID,
		AttackerTeamID: team.TeamID,
		SubmittedValue: value,
		SubmitterIP:    sourceIP,
		Status:         dec.status,
		Points:         points,
		SubmittedAt:    v.now().UTC(),
	}
	if captured != nil {
		sub.FlagID = &captured.ID
	}
	if err := v.subs.CreateSubmission(ctx, sub); err != nil {
		if dec.accept && errors.Is(err, store.ErrDuplicate) {
			// A concurrent submission of the same flag won the accepted slot
			// between the duplicate check and the insert. Record this attempt
			// as the duplicate it turned out to be.
			return v.recordDuplicate(ctx, sub)
		}
		return Result{}, err
	}

	if dec.accept {
		if err := v.applyCapture(ctx, team, captured, points); err != nil {
			return Result{}, err
		}
		v.logger.Info("flag captured",
			"game_id", team.GameID, "attacker", team.TeamID,
			"victim", captured.TeamID, "flag_type", captured.Type, "points", points)
	}

	v.metrics.CountSubmission(ctx, string(dec.status))
	return Result{Status: dec.status, Points: points, Message: dec.message}, nil
}

func (v *Validator) recordDuplicate(ctx context.Context, sub *store.FlagSubmission) (Result, error) {
	dup := *sub
	dup.ID = uuid.New()
	dup.Status = store.SubmissionDuplicate
	dup.Points = 0
	if err := v.subs.CreateSubmission(ctx, &dup); err != nil {
		return Result{}, err
	}
	v.metrics.CountSubmission(ctx, string(dup.Status))
	return Result{Status: store.SubmissionDuplicate, Message: "flag already submitted"}, nil
}

// judge runs the ordered rule pipeline. It returns the matched flag (nil
// when the value resolved to none) and the first decisive outcome.
func (v *Validator) judge(ctx context.Context, team *store.GameTeam, value string) (*store.Flag, *decision, error) {
	captured, err := v.flags.GetFlagByValue(ctx, value)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &decision{status: store.SubmissionInvalid, message: "invalid flag"}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rules := []func() (*decision, error){
		func() (*decision, error) {
			if captured.GameID != team.GameID {
				return &decision{status: store.SubmissionInvalid, message: "flag not from this game"}, nil
			}
			return nil, nil
		},
		func() (*decision, error) {
			if captured.TeamID == team.TeamID {
				return &decision{status: store.SubmissionOwnFlag, message: "cannot submit your own flag"}, nil
			}
			return nil, nil
		},
		func() (*decision, error) {
			if v.now().UTC().After(captured.ValidUntil) {
				return &decision{status: store.SubmissionExpired, message: "flag expired"}, nil
			}
			return nil, nil
		},
		func() (*decision, error) {
			dup, err := v.subs.HasAcceptedSubmission(ctx, team.TeamID, captured.ID)
			if err != nil {
				return nil, err
			}
			if dup {
				return &decision{status: store.SubmissionDuplicate, message: "flag already submitted"}, nil
			}
			return nil, nil
		},
	}

	for _, rule := range rules {
		dec, err := rule()
		if err != nil {
			return nil, nil, err
		}
		if dec != nil {
			return captured, dec, nil
		}
	}

	return captured, &decision{
		status:  store.SubmissionAccepted,
		message: "flag accepted",
		accept:  true,
	}, nil
}

func (v *Validator) applyCapture(ctx context.Context, attacker *store.GameTeam, captured *store.Flag, points int) error {
	if err := v.manager.MarkStolen(ctx, captured); err != nil {
		return fmt.Errorf("mark stolen: %w", err)
	}
	return v.scoring.ApplyCapture(ctx, attacker.GameID, attacker.TeamID, captured.TeamID, points)
}
